package repository

import (
	"sort"
	"strconv"

	"github.com/dd0wney/cluso-safety/pkg/audit"
)

// CreateElement creates a new typed element and stamps author metadata
func (r *Repository) CreateElement(kind ElementKind, name string, properties map[string]Value) (*Element, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, NewError("CreateElement").Entity("element", name).Cause(ErrClosed)
	}

	elem := &Element{
		ID:         r.allocID(),
		Kind:       kind,
		Name:       name,
		Properties: properties,
		Meta:       r.newMeta(),
	}

	r.elements[elem.ID] = elem
	r.elementsByKind[kind] = append(r.elementsByKind[kind], elem.ID)
	r.outgoing[elem.ID] = make([]uint64, 0)
	r.incoming[elem.ID] = make([]uint64, 0)
	r.stats.ElementCount++

	r.record(audit.ActionCreate, audit.EntityElement, strconv.FormatUint(elem.ID, 10), nil)
	return elem.Clone(), nil
}

// GetElement retrieves an element by ID
func (r *Repository) GetElement(id uint64) (*Element, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	elem, exists := r.elements[id]
	if !exists {
		return nil, NewError("GetElement").Element(id).Cause(ErrNotFound)
	}
	return elem.Clone(), nil
}

// UpdateElement replaces an element's name and properties
func (r *Repository) UpdateElement(id uint64, name string, properties map[string]Value) (*Element, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, NewError("UpdateElement").Element(id).Cause(ErrClosed)
	}
	elem, exists := r.elements[id]
	if !exists {
		err := NewError("UpdateElement").Element(id).Cause(ErrNotFound)
		r.record(audit.ActionUpdate, audit.EntityElement, strconv.FormatUint(id, 10), err)
		return nil, err
	}

	elem.Name = name
	elem.Properties = properties
	r.touchMeta(&elem.Meta)

	r.record(audit.ActionUpdate, audit.EntityElement, strconv.FormatUint(id, 10), nil)
	return elem.Clone(), nil
}

// DeleteElement removes an element. Without cascade the delete fails with
// ErrReferential if any relationship or diagram binding references the
// element and the model is left unchanged. With cascade, all referencing
// relationships and diagram bindings are removed under the same lock
// acquisition, so no partial cascade is ever observable.
func (r *Repository) DeleteElement(id uint64, cascade bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return NewError("DeleteElement").Element(id).Cause(ErrClosed)
	}
	elem, exists := r.elements[id]
	if !exists {
		return NewError("DeleteElement").Element(id).Cause(ErrNotFound)
	}

	relRefs := make([]uint64, 0, len(r.outgoing[id])+len(r.incoming[id]))
	relRefs = append(relRefs, r.outgoing[id]...)
	relRefs = append(relRefs, r.incoming[id]...)
	diagramRefs := r.elementDiagrams[id]

	if !cascade && (len(relRefs) > 0 || len(diagramRefs) > 0) {
		err := NewError("DeleteElement").Element(id).
			Context("element has relationships or diagram bindings; pass cascade to remove them").
			Cause(ErrReferential)
		r.record(audit.ActionDelete, audit.EntityElement, strconv.FormatUint(id, 10), err)
		return err
	}

	for _, relID := range relRefs {
		r.removeRelationshipLocked(relID)
	}
	for diagramID := range diagramRefs {
		if diagram, ok := r.diagrams[diagramID]; ok {
			r.unbindElementFromDiagramLocked(diagram, id)
		}
	}

	for i, eid := range r.elementsByKind[elem.Kind] {
		if eid == id {
			r.elementsByKind[elem.Kind] = append(r.elementsByKind[elem.Kind][:i], r.elementsByKind[elem.Kind][i+1:]...)
			break
		}
	}
	delete(r.elements, id)
	delete(r.outgoing, id)
	delete(r.incoming, id)
	delete(r.elementDiagrams, id)
	r.stats.ElementCount--

	r.record(audit.ActionDelete, audit.EntityElement, strconv.FormatUint(id, 10), nil)
	return nil
}

// FindElementsByKind returns all elements of a kind in creation order
func (r *Repository) FindElementsByKind(kind ElementKind) []*Element {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.elementsByKind[kind]
	results := make([]*Element, 0, len(ids))
	for _, id := range ids {
		if elem, ok := r.elements[id]; ok {
			results = append(results, elem.Clone())
		}
	}
	return results
}

// FindElementByName returns the first element of the kind with the given name
func (r *Repository) FindElementByName(kind ElementKind, name string) (*Element, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.elementsByKind[kind] {
		if elem, ok := r.elements[id]; ok && elem.Name == name {
			return elem.Clone(), nil
		}
	}
	return nil, NewError("FindElementByName").Entity("element", name).Cause(ErrNotFound)
}

// AllElements returns every element in ID (creation) order
func (r *Repository) AllElements() []*Element {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint64, 0, len(r.elements))
	for id := range r.elements {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	results := make([]*Element, 0, len(ids))
	for _, id := range ids {
		results = append(results, r.elements[id].Clone())
	}
	return results
}
