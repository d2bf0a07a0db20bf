package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/repository"
)

type cachedThing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCacheServiceGetOrFetch(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(repository.NewMemoryCacheRepository(), metrics, time.Minute, zap.NewNop(), true)
	calls := 0
	fetch := func(context.Context) (interface{}, error) {
		calls++
		return cachedThing{Name: "dash", Count: calls}, nil
	}

	var first cachedThing
	hit, err := svc.GetOrFetch(context.Background(), "dash:admin", 0, &first, fetch)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, cachedThing{Name: "dash", Count: 1}, first)

	var second cachedThing
	hit, err = svc.GetOrFetch(context.Background(), "dash:admin", 0, &second, fetch)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestCacheServiceFetchErrorIsReturned(t *testing.T) {
	svc := NewCacheService(repository.NewMemoryCacheRepository(), nil, time.Minute, zap.NewNop(), true)
	var dest cachedThing
	_, err := svc.GetOrFetch(context.Background(), "k", 0, &dest, func(context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
}

func TestCacheServiceInvalidatePatterns(t *testing.T) {
	svc := NewCacheService(repository.NewMemoryCacheRepository(), nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()
	for _, key := range []string{"dash:admin", "dash:student:s1", "complaints:list:abc", "notifications:unread:u1"} {
		require.NoError(t, svc.Set(ctx, key, 1, 0))
	}

	require.NoError(t, svc.Invalidate(ctx, CachePatternDashboards, CachePatternComplaints))

	var v int
	for _, key := range []string{"dash:admin", "dash:student:s1", "complaints:list:abc"} {
		hit, err := svc.Get(ctx, key, &v)
		require.NoError(t, err)
		assert.False(t, hit, key)
	}
	hit, err := svc.Get(ctx, "notifications:unread:u1", &v)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestCacheServiceDisabledIsPassthrough(t *testing.T) {
	var svc *CacheService
	assert.False(t, svc.Enabled())

	var dest int
	hit, err := svc.GetOrFetch(context.Background(), "k", 0, &dest, func(context.Context) (interface{}, error) { return 42, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 42, dest)
	assert.NoError(t, svc.Invalidate(context.Background(), "*"))
}
