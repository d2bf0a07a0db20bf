package realtime

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyStarted is returned by a second Start on the same Store.
var ErrAlreadyStarted = errors.New("realtime: store already started")

// Fetcher loads the baseline for a store.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// Reducer folds one event into the state.
type Reducer[T any] func(state []T, ev Event) ([]T, Effect)

// Update is emitted after every applied event or reload.
type Update[T any] struct {
	Event    Event
	State    []T
	Effect   Effect
	Reloaded bool
	Err      error
}

// Store keeps one surface's list in sync with the feed: a baseline fetch,
// then a single subscription whose events are applied in delivery order.
type Store[T any] struct {
	bus    Bus
	filter Filter
	fetch  Fetcher[T]
	reduce Reducer[T]
	buffer int

	mu      sync.Mutex
	state   []T
	started bool
	closed  bool
	sub     *Subscription
	updates chan Update[T]
	done    chan struct{}
}

func NewStore[T any](bus Bus, filter Filter, fetch Fetcher[T], reduce Reducer[T], buffer int) *Store[T] {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Store[T]{
		bus:     bus,
		filter:  filter,
		fetch:   fetch,
		reduce:  reduce,
		buffer:  buffer,
		updates: make(chan Update[T], buffer),
		done:    make(chan struct{}),
	}
}

// Start loads the baseline and subscribes. It runs until ctx ends or Close is called.
func (s *Store[T]) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	baseline, err := s.fetch(ctx)
	if err != nil {
		close(s.updates)
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(s.updates)
		return nil
	}
	s.state = baseline
	s.sub = s.bus.Subscribe(s.filter, s.buffer)
	sub := s.sub
	s.mu.Unlock()

	go s.loop(ctx, sub)
	return nil
}

func (s *Store[T]) loop(ctx context.Context, sub *Subscription) {
	defer close(s.updates)
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			upd := s.apply(ctx, ev)
			select {
			case s.updates <- upd:
			case <-s.done:
				return
			case <-ctx.Done():
				s.Close()
				return
			}
		}
	}
}

func (s *Store[T]) apply(ctx context.Context, ev Event) Update[T] {
	s.mu.Lock()
	next, effect := s.reduce(s.state, ev)
	s.state = next
	s.mu.Unlock()

	upd := Update[T]{Event: ev, Effect: effect}
	if effect.Refetch {
		fresh, err := s.fetch(ctx)
		if err != nil {
			upd.Err = err
		} else {
			s.mu.Lock()
			s.state = fresh
			s.mu.Unlock()
			upd.Reloaded = true
		}
	}
	upd.State = s.Snapshot()
	return upd
}

// Refetch replaces the state with a fresh baseline and returns it.
func (s *Store[T]) Refetch(ctx context.Context) ([]T, error) {
	fresh, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.state = fresh
	s.mu.Unlock()
	return s.Snapshot(), nil
}

// Snapshot returns a copy of the current state.
func (s *Store[T]) Snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.state))
	copy(out, s.state)
	return out
}

// Updates is closed when the store stops.
func (s *Store[T]) Updates() <-chan Update[T] {
	return s.updates
}

// Close unsubscribes. Calling it again is a no-op.
func (s *Store[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	close(s.done)
	s.mu.Unlock()

	if sub != nil {
		s.bus.Unsubscribe(sub)
	}
}
