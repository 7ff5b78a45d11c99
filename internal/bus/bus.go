// Package bus is the process-wide "expenses changed" notification channel.
//
// A publish carries no payload: subscribers re-derive whatever they cache by
// fetching again. Handlers run synchronously on the publisher's goroutine, so
// they must return quickly and hand long work off to their own goroutines.
package bus

import (
	"sort"
	"sync"

	"spesefx/internal/log"
)

type Handler func()

// Bus is a fan-out observer registry.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]Handler
	logger   *log.Logger
}

func New(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Discard()
	}
	return &Bus{
		handlers: make(map[uint64]Handler),
		logger:   logger.WithComponent(log.ComponentBus),
	}
}

// Subscribe registers h and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish wakes every handler subscribed at the time of the call, in
// subscription order.
func (b *Bus) Publish() {
	for _, h := range b.snapshot() {
		b.deliver(h)
	}
}

// Subscribers returns the number of registered handlers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

func (b *Bus) snapshot() []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]uint64, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	hs := make([]Handler, len(ids))
	for i, id := range ids {
		hs[i] = b.handlers[id]
	}
	return hs
}

func (b *Bus) deliver(h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Invalidation handler panicked", "panic", r)
		}
	}()
	h()
}
