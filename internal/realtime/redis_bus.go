package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus shares the change feed between API instances. Publish writes to a
// Redis channel and Run relays everything received on it into the local Hub,
// including this instance's own events.
type RedisBus struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *zap.Logger

	readyOnce sync.Once
	ready     chan struct{}
	relaying  atomic.Bool
}

func NewRedisBus(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *RedisBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBus{client: client, channel: channel, hub: hub, logger: logger, ready: make(chan struct{})}
}

// Publish delivers locally whenever this instance's relay is not running, or
// when Redis rejects the message.
func (b *RedisBus) Publish(ctx context.Context, ev Event) {
	if !b.relaying.Load() {
		b.hub.Publish(ctx, ev)
		b.publishRemote(ctx, ev)
		return
	}
	if err := b.publishRemote(ctx, ev); err != nil {
		b.hub.Publish(ctx, ev)
	}
}

func (b *RedisBus) publishRemote(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Warn("marshal realtime event", zap.Error(err))
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Warn("redis publish failed",
			zap.String("channel", b.channel), zap.Error(err))
		return err
	}
	return nil
}

// Relaying reports whether Run is currently feeding the local hub.
func (b *RedisBus) Relaying() bool {
	return b.relaying.Load()
}

func (b *RedisBus) Subscribe(filter Filter, buffer int) *Subscription {
	return b.hub.Subscribe(filter, buffer)
}

func (b *RedisBus) Unsubscribe(sub *Subscription) {
	b.hub.Unsubscribe(sub)
}

// Ready is closed once the Redis subscription is confirmed.
func (b *RedisBus) Ready() <-chan struct{} {
	return b.ready
}

// Run blocks until ctx is cancelled or the subscription fails.
func (b *RedisBus) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.relaying.Store(true)
	defer b.relaying.Store(false)
	b.readyOnce.Do(func() { close(b.ready) })

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn("discarding malformed realtime event", zap.Error(err))
				continue
			}
			b.hub.Publish(ctx, ev)
		}
	}
}
