package match

import "sync"

// EventPublisher is an interface for publishing order book events (opens,
// matches, cancels).
//
// IMPORTANT: Implementations must either:
//  1. Process events synchronously before returning, OR
//  2. Clone the BookEvent data before returning
//
// The caller recycles BookEvent objects to a sync.Pool after Publish
// returns, so any asynchronous processing must work with cloned data.
type EventPublisher interface {
	Publish(...*BookEvent)
}

// MemoryEventPublisher stores events in memory, useful for testing and for
// feeding an AggregatedBook.
type MemoryEventPublisher struct {
	mu     sync.RWMutex
	events []*BookEvent
}

// NewMemoryEventPublisher creates a new MemoryEventPublisher.
func NewMemoryEventPublisher() *MemoryEventPublisher {
	return &MemoryEventPublisher{
		events: make([]*BookEvent, 0),
	}
}

// Publish appends copies of the events to the in-memory slice.
func (m *MemoryEventPublisher) Publish(events ...*BookEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, event := range events {
		cpy := new(BookEvent)
		*cpy = *event
		m.events = append(m.events, cpy)
	}
}

// Count returns the number of events stored.
func (m *MemoryEventPublisher) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Get returns the event at the specified index.
func (m *MemoryEventPublisher) Get(index int) *BookEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.events[index]
}

// Events returns a copy of all events stored.
func (m *MemoryEventPublisher) Events() []*BookEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*BookEvent, len(m.events))
	copy(events, m.events)
	return events
}

// DiscardEventPublisher drops all events, useful for benchmarking.
type DiscardEventPublisher struct {
}

// NewDiscardEventPublisher creates a new DiscardEventPublisher.
func NewDiscardEventPublisher() *DiscardEventPublisher {
	return &DiscardEventPublisher{}
}

// Publish does nothing.
func (p *DiscardEventPublisher) Publish(events ...*BookEvent) {

}
