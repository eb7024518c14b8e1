// Package repository owns all typed model entities: elements, relationships,
// diagrams and analysis documents. It assigns identity from a single ID space
// and is the only component that mutates entity state; the analysis engines
// read and write exclusively through it.
package repository

import (
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-safety/pkg/audit"
	"github.com/dd0wney/cluso-safety/pkg/logging"
)

// User identifies the author stamped onto every write
type User struct {
	Name  string
	Email string
}

// Statistics tracks repository counters
type Statistics struct {
	ElementCount      uint64
	RelationshipCount uint64
	DiagramCount      uint64
	DocumentCount     uint64
}

// Repository is the in-memory model store. It is constructed explicitly and
// passed by reference; there is no process-wide instance, so tests can hold
// several independent models.
type Repository struct {
	mu sync.RWMutex

	elements      map[uint64]*Element
	relationships map[uint64]*Relationship
	diagrams      map[uint64]*Diagram

	// Indexes for fast lookups
	elementsByKind  map[ElementKind][]uint64
	outgoing        map[uint64][]uint64            // element ID -> outgoing relationship IDs
	incoming        map[uint64][]uint64            // element ID -> incoming relationship IDs
	elementDiagrams map[uint64]map[uint64]struct{} // element ID -> diagram IDs (reverse index)

	// Analysis documents by unique name, with registration order preserved
	documents map[string]Document
	docOrder  []string

	// Single ID space: identifier uniqueness holds across the whole
	// repository, not per entity kind
	nextID uint64

	closed bool

	user  User
	trail *audit.Trail
	log   logging.Logger

	stats Statistics
}

// Config holds construction options for a Repository
type Config struct {
	User   User
	Trail  *audit.Trail   // nil disables audit recording
	Logger logging.Logger // nil falls back to a nop logger
}

// New creates an empty repository
func New(cfg Config) *Repository {
	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Repository{
		elements:        make(map[uint64]*Element),
		relationships:   make(map[uint64]*Relationship),
		diagrams:        make(map[uint64]*Diagram),
		elementsByKind:  make(map[ElementKind][]uint64),
		outgoing:        make(map[uint64][]uint64),
		incoming:        make(map[uint64][]uint64),
		elementDiagrams: make(map[uint64]map[uint64]struct{}),
		documents:       make(map[string]Document),
		nextID:          1,
		user:            cfg.User,
		trail:           cfg.Trail,
		log:             log,
	}
}

// SetUser changes the author identity stamped onto subsequent writes
func (r *Repository) SetUser(user User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.user = user
}

// CurrentUser returns the author identity
func (r *Repository) CurrentUser() User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.user
}

// GetStatistics returns a copy of the repository counters
func (r *Repository) GetStatistics() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// Close marks the repository closed; subsequent mutations fail with ErrClosed
func (r *Repository) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// allocID hands out the next identifier. Caller must hold the write lock.
func (r *Repository) allocID() uint64 {
	id := r.nextID
	r.nextID++
	return id
}

// RestoreIDCounter sets the ID allocator during snapshot load. The counter
// must exceed every restored entity ID; smaller values are rejected so a
// bad snapshot cannot cause identifier reuse.
func (r *Repository) RestoreIDCounter(next uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.elements {
		if id >= next {
			return fmt.Errorf("ID counter %d does not clear element %d", next, id)
		}
	}
	for id := range r.relationships {
		if id >= next {
			return fmt.Errorf("ID counter %d does not clear relationship %d", next, id)
		}
	}
	for id := range r.diagrams {
		if id >= next {
			return fmt.Errorf("ID counter %d does not clear diagram %d", next, id)
		}
	}
	r.nextID = next
	return nil
}

// NextID exposes the allocator position for snapshot capture
func (r *Repository) NextID() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID
}

// newMeta builds a creation stamp. Caller must hold the lock.
func (r *Repository) newMeta() Metadata {
	now := time.Now()
	return Metadata{
		Created:         now,
		Author:          r.user.Name,
		AuthorEmail:     r.user.Email,
		Modified:        now,
		ModifiedBy:      r.user.Name,
		ModifiedByEmail: r.user.Email,
	}
}

// touchMeta refreshes the modification stamp. Caller must hold the lock.
func (r *Repository) touchMeta(meta *Metadata) {
	meta.Modified = time.Now()
	meta.ModifiedBy = r.user.Name
	meta.ModifiedByEmail = r.user.Email
}

// record emits an audit event if a trail is configured. Caller may hold the lock.
func (r *Repository) record(action audit.Action, kind audit.EntityKind, entityID string, err error) {
	if r.trail == nil {
		return
	}
	event := &audit.Event{
		Author:      r.user.Name,
		AuthorEmail: r.user.Email,
		Action:      action,
		EntityKind:  kind,
		EntityID:    entityID,
		Status:      audit.StatusSuccess,
	}
	if err != nil {
		event.Status = audit.StatusFailure
		event.ErrorMessage = err.Error()
	}
	r.trail.Record(event)
}
