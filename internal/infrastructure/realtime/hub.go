package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"homelink/internal/domain/service"
	"homelink/pkg/logger"
)

// SnapshotFunc reads the current state of a path from a store.
type SnapshotFunc func(ctx context.Context, path string) (service.Snapshot, error)

// Hub fans write notifications out to path subscriptions. Each subscription
// owns a worker goroutine, so callbacks for one subscription run one at a
// time, and bursts of writes collapse into a single re-read.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*subscription)}
}

type subscription struct {
	id       uint64
	path     string
	fetch    SnapshotFunc
	onChange func(service.Snapshot)

	signal chan struct{}
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
}

// Subscribe delivers the current state of path before returning, then starts
// the worker that re-reads path on every related Notify.
func (h *Hub) Subscribe(ctx context.Context, path string, fetch SnapshotFunc, onChange func(service.Snapshot)) (service.Unsubscribe, error) {
	path = Normalize(path)
	sub := &subscription{
		path:     path,
		fetch:    fetch,
		onChange: onChange,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, context.Canceled
	}
	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	h.mu.Unlock()

	unsubscribe := func() { h.remove(sub) }

	snapshot, err := fetch(ctx, path)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	onChange(snapshot)

	go sub.run(ctx, unsubscribe)
	return unsubscribe, nil
}

// Notify wakes every subscription whose path is related to path.
func (h *Hub) Notify(path string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if related(sub.path, path) {
			sub.wake()
		}
	}
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close stops every subscription; later Subscribe calls fail.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[uint64]*subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}

func (h *Hub) remove(sub *subscription) {
	h.mu.Lock()
	delete(h.subs, sub.id)
	h.mu.Unlock()
	sub.stop()
}

func (s *subscription) wake() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscription) stop() {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)
	})
}

func (s *subscription) run(ctx context.Context, unsubscribe func()) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			unsubscribe()
			return
		case <-s.signal:
		}

		if s.closed.Load() {
			return
		}
		snapshot, err := s.fetch(ctx, s.path)
		if err != nil {
			logger.Warn("realtime: failed to read %s for subscriber: %v", s.path, err)
			continue
		}
		if s.closed.Load() {
			return
		}
		s.onChange(snapshot)
	}
}
