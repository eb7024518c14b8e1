package repository

import (
	"sort"
	"strconv"

	"github.com/dd0wney/cluso-safety/pkg/audit"
)

// CreateRelationship creates a typed directed edge between two elements.
// Both endpoints must exist; a dangling reference is ErrReferential, never a
// silent no-op.
func (r *Repository) CreateRelationship(fromID, toID uint64, stereotype string, properties map[string]Value) (*Relationship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, NewError("CreateRelationship").Entity("relationship", stereotype).Cause(ErrClosed)
	}
	if _, exists := r.elements[fromID]; !exists {
		err := NewError("CreateRelationship").Element(fromID).Context("source does not exist").Cause(ErrReferential)
		r.record(audit.ActionCreate, audit.EntityRelationship, "", err)
		return nil, err
	}
	if _, exists := r.elements[toID]; !exists {
		err := NewError("CreateRelationship").Element(toID).Context("target does not exist").Cause(ErrReferential)
		r.record(audit.ActionCreate, audit.EntityRelationship, "", err)
		return nil, err
	}

	rel := &Relationship{
		ID:         r.allocID(),
		FromID:     fromID,
		ToID:       toID,
		Stereotype: stereotype,
		Properties: properties,
		Meta:       r.newMeta(),
	}

	r.relationships[rel.ID] = rel
	r.outgoing[fromID] = append(r.outgoing[fromID], rel.ID)
	r.incoming[toID] = append(r.incoming[toID], rel.ID)
	r.stats.RelationshipCount++

	r.record(audit.ActionCreate, audit.EntityRelationship, strconv.FormatUint(rel.ID, 10), nil)
	return rel.Clone(), nil
}

// GetRelationship retrieves a relationship by ID
func (r *Repository) GetRelationship(id uint64) (*Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rel, exists := r.relationships[id]
	if !exists {
		return nil, NewError("GetRelationship").Relationship(id).Cause(ErrNotFound)
	}
	return rel.Clone(), nil
}

// UpdateRelationship replaces a relationship's properties
func (r *Repository) UpdateRelationship(id uint64, properties map[string]Value) (*Relationship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, NewError("UpdateRelationship").Relationship(id).Cause(ErrClosed)
	}
	rel, exists := r.relationships[id]
	if !exists {
		return nil, NewError("UpdateRelationship").Relationship(id).Cause(ErrNotFound)
	}

	rel.Properties = properties
	r.touchMeta(&rel.Meta)

	r.record(audit.ActionUpdate, audit.EntityRelationship, strconv.FormatUint(id, 10), nil)
	return rel.Clone(), nil
}

// DeleteRelationship removes a relationship and its diagram connection bindings
func (r *Repository) DeleteRelationship(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return NewError("DeleteRelationship").Relationship(id).Cause(ErrClosed)
	}
	if _, exists := r.relationships[id]; !exists {
		return NewError("DeleteRelationship").Relationship(id).Cause(ErrNotFound)
	}

	r.removeRelationshipLocked(id)
	r.record(audit.ActionDelete, audit.EntityRelationship, strconv.FormatUint(id, 10), nil)
	return nil
}

// removeRelationshipLocked deletes the relationship, its adjacency entries
// and any drawn connections bound to it. Caller must hold the write lock.
func (r *Repository) removeRelationshipLocked(id uint64) {
	rel, exists := r.relationships[id]
	if !exists {
		return
	}

	r.outgoing[rel.FromID] = removeID(r.outgoing[rel.FromID], id)
	r.incoming[rel.ToID] = removeID(r.incoming[rel.ToID], id)

	for _, diagram := range r.diagrams {
		kept := diagram.Connections[:0]
		for _, conn := range diagram.Connections {
			if conn.RelationshipID != id {
				kept = append(kept, conn)
			}
		}
		diagram.Connections = kept
	}

	delete(r.relationships, id)
	r.stats.RelationshipCount--
}

// OutgoingRelationships returns the relationships leaving an element
func (r *Repository) OutgoingRelationships(elementID uint64) ([]*Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.elements[elementID]; !exists {
		return nil, NewError("OutgoingRelationships").Element(elementID).Cause(ErrNotFound)
	}
	results := make([]*Relationship, 0, len(r.outgoing[elementID]))
	for _, relID := range r.outgoing[elementID] {
		results = append(results, r.relationships[relID].Clone())
	}
	return results, nil
}

// IncomingRelationships returns the relationships arriving at an element
func (r *Repository) IncomingRelationships(elementID uint64) ([]*Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.elements[elementID]; !exists {
		return nil, NewError("IncomingRelationships").Element(elementID).Cause(ErrNotFound)
	}
	results := make([]*Relationship, 0, len(r.incoming[elementID]))
	for _, relID := range r.incoming[elementID] {
		results = append(results, r.relationships[relID].Clone())
	}
	return results, nil
}

// AllRelationships returns every relationship in ID (creation) order
func (r *Repository) AllRelationships() []*Relationship {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint64, 0, len(r.relationships))
	for id := range r.relationships {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	results := make([]*Relationship, 0, len(ids))
	for _, id := range ids {
		results = append(results, r.relationships[id].Clone())
	}
	return results
}

// removeID removes the first occurrence of id from the slice
func removeID(ids []uint64, id uint64) []uint64 {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
