package downloader

import (
	"sync"

	"github.com/cesargomez89/musicdl/internal/domain"
)

// Bus carries events from tasks to the manager loop. Events from one
// publisher arrive in the order they were published.
type Bus struct {
	events chan domain.Event
	done   chan struct{}
	once   sync.Once
}

// NewBus returns a bus that buffers up to size events.
func NewBus(size int) *Bus {
	return &Bus{
		events: make(chan domain.Event, size),
		done:   make(chan struct{}),
	}
}

// Publish delivers ev. It blocks while the buffer is full and returns false
// once the bus is closed.
func (b *Bus) Publish(ev domain.Event) bool {
	select {
	case <-b.done:
		return false
	default:
	}
	select {
	case b.events <- ev:
		return true
	case <-b.done:
		return false
	}
}

// Events is the receive side drained by the manager loop.
func (b *Bus) Events() <-chan domain.Event {
	return b.events
}

// Close releases blocked publishers. Events already buffered stay readable.
func (b *Bus) Close() {
	b.once.Do(func() { close(b.done) })
}
