// Package events provides a synchronous observer bus for cross-document
// cascades. Handlers run inside the mutating operation that published the
// event, so a cascade either completes with the mutation or is never
// observed at all.
package events

import (
	"sync"
)

// Topic identifies a class of model change
type Topic string

const (
	// TopicRequirementEdited fires when a requirement's text changes
	TopicRequirementEdited Topic = "requirement.edited"
	// TopicHaraRowChanged fires when a risk-assessment row is added or updated
	TopicHaraRowChanged Topic = "hara.row_changed"
	// TopicCyberRowChanged fires when a cyber risk row is added or updated
	TopicCyberRowChanged Topic = "cyber.row_changed"
	// TopicTablesReplaced fires when the configuration tables are swapped
	TopicTablesReplaced Topic = "config.tables_replaced"
	// TopicElementDeleted fires after a cascading element delete
	TopicElementDeleted Topic = "element.deleted"
)

// Handler consumes a published payload. Handlers must not publish to the
// same topic they are subscribed to.
type Handler func(payload any)

// Bus dispatches events synchronously to subscribed handlers in
// subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]Handler
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[Topic][]Handler)}
}

// Subscribe registers a handler for a topic
func (b *Bus) Subscribe(topic Topic, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Publish invokes every handler registered for the topic, in order,
// before returning. The snapshot copy keeps handlers free to subscribe
// other topics while a publish is in flight.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.RLock()
	snapshot := make([]Handler, len(b.handlers[topic]))
	copy(snapshot, b.handlers[topic])
	b.mu.RUnlock()

	for _, h := range snapshot {
		h(payload)
	}
}

// SubscriberCount returns the number of handlers for a topic
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}
