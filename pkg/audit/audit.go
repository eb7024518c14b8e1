package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action types for audit events
type Action string

const (
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionDelete    Action = "delete"
	ActionRecompute Action = "recompute"
	ActionReview    Action = "review"
	ActionBaseline  Action = "baseline"
)

// EntityKind identifies the kind of model entity an event refers to
type EntityKind string

const (
	EntityElement      EntityKind = "element"
	EntityRelationship EntityKind = "relationship"
	EntityDiagram      EntityKind = "diagram"
	EntityDocument     EntityKind = "document"
	EntityRequirement  EntityKind = "requirement"
	EntityReviewData   EntityKind = "review"
	EntityFaultTree    EntityKind = "faulttree"
)

// Status represents the outcome of an action
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Event represents a single audit log entry
type Event struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Author       string         `json:"author,omitempty"`
	AuthorEmail  string         `json:"author_email,omitempty"`
	Action       Action         `json:"action"`
	EntityKind   EntityKind     `json:"entity_kind"`
	EntityID     string         `json:"entity_id,omitempty"`
	Status       Status         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Filter represents filtering criteria for audit events
type Filter struct {
	Author     string
	Action     Action
	EntityKind EntityKind
	EntityID   string
	Status     Status
	StartTime  *time.Time
	EndTime    *time.Time
}

// matches reports whether an event passes the filter
func (f *Filter) matches(e *Event) bool {
	if f.Author != "" && e.Author != f.Author {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.EntityKind != "" && e.EntityKind != f.EntityKind {
		return false
	}
	if f.EntityID != "" && e.EntityID != f.EntityID {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.StartTime != nil && e.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && e.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}

// Trail is an in-memory audit log with a bounded ring of events.
// When the capacity is reached the oldest events are dropped.
type Trail struct {
	mu       sync.RWMutex
	events   []*Event
	capacity int
	total    int64
}

// DefaultCapacity bounds the in-memory event ring
const DefaultCapacity = 10000

// NewTrail creates an audit trail with the given capacity.
// A capacity <= 0 falls back to DefaultCapacity.
func NewTrail(capacity int) *Trail {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Trail{
		events:   make([]*Event, 0, 64),
		capacity: capacity,
	}
}

// Record appends an event, assigning an ID and timestamp if unset
func (t *Trail) Record(event *Event) {
	if event == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.events = append(t.events, event)
	t.total++
	if len(t.events) > t.capacity {
		overflow := len(t.events) - t.capacity
		t.events = append(t.events[:0:0], t.events[overflow:]...)
	}
}

// Query returns events matching the filter, oldest first.
// A nil filter returns all retained events.
func (t *Trail) Query(filter *Filter) []*Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	results := make([]*Event, 0)
	for _, e := range t.events {
		if filter == nil || filter.matches(e) {
			results = append(results, e)
		}
	}
	return results
}

// EventCount returns the total number of events ever recorded,
// including those already rotated out of the ring.
func (t *Trail) EventCount() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}
