package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/realtime"
	"github.com/noah-isme/complaint-desk-api/internal/repository"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/jobs"
)

type stubRecipients struct {
	ids []string
	err error
}

func (s stubRecipients) ListIDsByRoles(context.Context, ...models.Role) ([]string, error) {
	return s.ids, s.err
}

type stubQueue struct {
	payloads []interface{}
	err      error
}

func (q *stubQueue) Enqueue(jobType string, payload interface{}) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.payloads = append(q.payloads, payload)
	return "job-1", nil
}

type notificationFixture struct {
	svc     *NotificationService
	repo    *fakeNotificationRepo
	bus     *recordingBus
	queue   *stubQueue
	metrics *MetricsService
}

func newNotificationFixture(recipients stubRecipients) notificationFixture {
	repo := &fakeNotificationRepo{}
	bus := &recordingBus{}
	queue := &stubQueue{}
	metrics := NewMetricsService()
	cache := NewCacheService(repository.NewMemoryCacheRepository(), metrics, time.Minute, zap.NewNop(), true)
	svc := NewNotificationService(repo, recipients, bus, queue, cache, metrics, zap.NewNop(), 20)
	return notificationFixture{svc: svc, repo: repo, bus: bus, queue: queue, metrics: metrics}
}

func TestNotifyInsertsUnreadAndPublishes(t *testing.T) {
	f := newNotificationFixture(stubRecipients{})
	related := "c1"

	f.svc.Notify(context.Background(), "u1", models.NotificationComplaintUpdated, "Complaint Status Updated", "msg", &related)

	require.Len(t, f.repo.rows, 1)
	assert.False(t, f.repo.rows[0].Read)
	events := f.bus.Events()
	require.Len(t, events, 1)
	assert.Equal(t, realtime.KindInserted, events[0].Kind)
	assert.Equal(t, realtime.EntityNotification, events[0].Entity)
	assert.Equal(t, "u1", events[0].OwnerID)
}

func TestNotifyFailureIsSwallowedAndCounted(t *testing.T) {
	f := newNotificationFixture(stubRecipients{})
	f.repo.insertErr = errors.New("insert failed")

	assert.NotPanics(t, func() {
		f.svc.Notify(context.Background(), "u1", models.NotificationComplaintResponse, "t", "m", nil)
	})
	assert.Empty(t, f.bus.Events())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.notificationFailures.WithLabelValues("complaint_response")))
}

func TestNotifyStaffEnqueuesFanout(t *testing.T) {
	f := newNotificationFixture(stubRecipients{ids: []string{"a1", "a2"}})

	f.svc.NotifyStaff(context.Background(), models.NotificationComplaintSubmitted, "New Complaint Submitted", "m", nil)

	require.Len(t, f.queue.payloads, 1)
	assert.Empty(t, f.repo.rows)

	err := f.svc.HandleFanout(context.Background(), jobs.Job{ID: "job-1", Payload: f.queue.payloads[0]})
	require.NoError(t, err)
	require.Len(t, f.repo.rows, 2)
	assert.Equal(t, "a1", f.repo.rows[0].UserID)
	assert.Equal(t, "a2", f.repo.rows[1].UserID)
}

func TestNotifyStaffRunsInlineWhenQueueRefuses(t *testing.T) {
	f := newNotificationFixture(stubRecipients{ids: []string{"a1"}})
	f.queue.err = jobs.ErrQueueFull

	f.svc.NotifyStaff(context.Background(), models.NotificationComplaintSubmitted, "t", "m", nil)
	assert.Len(t, f.repo.rows, 1)
}

func TestHandleFanoutRetriesRecipientLookup(t *testing.T) {
	f := newNotificationFixture(stubRecipients{err: errors.New("db down")})
	err := f.svc.HandleFanout(context.Background(), jobs.Job{Payload: FanoutPayload{Type: models.NotificationSystem}})
	assert.Error(t, err)
}

func TestMarkReadIsIdempotentAndScoped(t *testing.T) {
	f := newNotificationFixture(stubRecipients{})
	f.svc.Notify(context.Background(), "u1", models.NotificationSystem, "t", "m", nil)
	id := f.repo.rows[0].ID

	require.NoError(t, f.svc.MarkRead(context.Background(), id, "u1"))
	require.NoError(t, f.svc.MarkRead(context.Background(), id, "u1"))

	updates := 0
	for _, ev := range f.bus.Events() {
		if ev.Kind == realtime.KindUpdated {
			updates++
		}
	}
	assert.Equal(t, 1, updates, "second mark must not publish")

	err := f.svc.MarkRead(context.Background(), id, "intruder")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestMarkReadUnparseableIDIsNotFound(t *testing.T) {
	f := newNotificationFixture(stubRecipients{})
	f.repo.markErr = fmt.Errorf("mark notification read: %w", &pq.Error{Code: "22P02"})

	err := f.svc.MarkRead(context.Background(), "abc", "u1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, f.bus.Events())
}

func TestMarkAllReadAndUnreadCount(t *testing.T) {
	f := newNotificationFixture(stubRecipients{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.svc.Notify(ctx, "u1", models.NotificationSystem, "t", "m", nil)
	}
	f.svc.Notify(ctx, "u2", models.NotificationSystem, "t", "m", nil)

	unread, err := f.svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	count, err := f.svc.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	unread, err = f.svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, unread, "cached count must be invalidated")

	other, err := f.svc.UnreadCount(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, other)

	count, err = f.svc.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListRecentClampsLimit(t *testing.T) {
	f := newNotificationFixture(stubRecipients{})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		f.svc.now = func() time.Time { return at }
		f.svc.Notify(context.Background(), "u1", models.NotificationSystem, "t", "m", nil)
	}

	items, unread, err := f.svc.ListRecent(context.Background(), "u1", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].CreatedAt.After(items[1].CreatedAt))
	assert.Equal(t, 5, unread)

	items, _, err = f.svc.ListRecent(context.Background(), "u1", 1000)
	require.NoError(t, err)
	assert.Len(t, items, 5)
}
