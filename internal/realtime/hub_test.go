package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	subscribers int
	drops       int
}

func (m *countingMetrics) SubscriberDelta(delta int) { m.subscribers += delta }
func (m *countingMetrics) RecordRealtimeDrop()       { m.drops++ }

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestHubFiltersByOwner(t *testing.T) {
	h := NewHub(nil)
	mine := h.Subscribe(ForOwner(EntityNotification, "u1"), 4)
	defer h.Unsubscribe(mine)

	h.Publish(context.Background(), NewEvent(KindInserted, EntityNotification, "n1", "u2", nil))
	h.Publish(context.Background(), NewEvent(KindInserted, EntityComplaint, "c1", "u1", nil))
	h.Publish(context.Background(), NewEvent(KindInserted, EntityNotification, "n2", "u1", nil))

	ev := receive(t, mine)
	assert.Equal(t, "n2", ev.ID)
	select {
	case extra := <-mine.C:
		t.Fatalf("unexpected event %+v", extra)
	default:
	}
}

func TestHubUnsubscribeIsIdempotent(t *testing.T) {
	metrics := &countingMetrics{}
	h := NewHub(metrics)
	sub := h.Subscribe(nil, 1)
	assert.Equal(t, 1, metrics.subscribers)

	h.Unsubscribe(sub)
	h.Unsubscribe(sub)

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 0, metrics.subscribers)
	assert.Equal(t, 0, h.Len())
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	metrics := &countingMetrics{}
	h := NewHub(metrics)
	sub := h.Subscribe(nil, 1)
	defer h.Unsubscribe(sub)

	h.Publish(context.Background(), NewEvent(KindUpdated, EntityComplaint, "first", "", nil))
	h.Publish(context.Background(), NewEvent(KindUpdated, EntityComplaint, "second", "", nil))

	assert.Equal(t, "first", receive(t, sub).ID)
	assert.Equal(t, 1, metrics.drops)
}

func TestSubscribeUsesDefaultBuffer(t *testing.T) {
	h := NewHub(nil)
	sub := h.Subscribe(nil, 0)
	defer h.Unsubscribe(sub)
	assert.Equal(t, defaultBuffer, cap(sub.ch))
}
