package repository

import (
	"sort"
	"strconv"

	"github.com/dd0wney/cluso-safety/pkg/audit"
)

// CreateDiagram creates a named, empty diagram
func (r *Repository) CreateDiagram(name string) (*Diagram, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, NewError("CreateDiagram").Entity("diagram", name).Cause(ErrClosed)
	}
	for _, d := range r.diagrams {
		if d.Name == name {
			return nil, NewError("CreateDiagram").Entity("diagram", name).Cause(ErrDuplicate)
		}
	}

	diagram := &Diagram{
		ID:        r.allocID(),
		Name:      name,
		Meta:      r.newMeta(),
		nextObjID: 1,
	}
	r.diagrams[diagram.ID] = diagram
	r.stats.DiagramCount++

	r.record(audit.ActionCreate, audit.EntityDiagram, strconv.FormatUint(diagram.ID, 10), nil)
	return diagram.Clone(), nil
}

// GetDiagram retrieves a diagram by ID
func (r *Repository) GetDiagram(id uint64) (*Diagram, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	diagram, exists := r.diagrams[id]
	if !exists {
		return nil, NewError("GetDiagram").Diagram(id).Cause(ErrNotFound)
	}
	return diagram.Clone(), nil
}

// DeleteDiagram removes a diagram and all reverse-index entries pointing at it
func (r *Repository) DeleteDiagram(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return NewError("DeleteDiagram").Diagram(id).Cause(ErrClosed)
	}
	diagram, exists := r.diagrams[id]
	if !exists {
		return NewError("DeleteDiagram").Diagram(id).Cause(ErrNotFound)
	}

	for _, obj := range diagram.Objects {
		if obj.ElementID != 0 {
			r.dropDiagramIndexLocked(obj.ElementID, id)
		}
	}
	delete(r.diagrams, id)
	r.stats.DiagramCount--

	r.record(audit.ActionDelete, audit.EntityDiagram, strconv.FormatUint(id, 10), nil)
	return nil
}

// AddDrawnObject places a drawn object on a diagram, optionally bound to an
// element. A bound object updates the element->diagrams reverse index.
func (r *Repository) AddDrawnObject(diagramID, elementID uint64, x, y, width, height float64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, NewError("AddDrawnObject").Diagram(diagramID).Cause(ErrClosed)
	}
	diagram, exists := r.diagrams[diagramID]
	if !exists {
		return 0, NewError("AddDrawnObject").Diagram(diagramID).Cause(ErrNotFound)
	}
	if elementID != 0 {
		if _, exists := r.elements[elementID]; !exists {
			return 0, NewError("AddDrawnObject").Element(elementID).Context("binding target does not exist").Cause(ErrReferential)
		}
	}

	objID := diagram.nextObjID
	diagram.nextObjID++
	diagram.Objects = append(diagram.Objects, DrawnObject{
		ObjID:     objID,
		ElementID: elementID,
		X:         x,
		Y:         y,
		Width:     width,
		Height:    height,
	})
	r.touchMeta(&diagram.Meta)

	if elementID != 0 {
		if r.elementDiagrams[elementID] == nil {
			r.elementDiagrams[elementID] = make(map[uint64]struct{})
		}
		r.elementDiagrams[elementID][diagramID] = struct{}{}
	}
	return objID, nil
}

// RemoveDrawnObject removes a drawn object and any connections attached to it
func (r *Repository) RemoveDrawnObject(diagramID, objID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return NewError("RemoveDrawnObject").Diagram(diagramID).Cause(ErrClosed)
	}
	diagram, exists := r.diagrams[diagramID]
	if !exists {
		return NewError("RemoveDrawnObject").Diagram(diagramID).Cause(ErrNotFound)
	}

	var removed *DrawnObject
	kept := diagram.Objects[:0]
	for i := range diagram.Objects {
		if diagram.Objects[i].ObjID == objID {
			removed = &diagram.Objects[i]
			continue
		}
		kept = append(kept, diagram.Objects[i])
	}
	if removed == nil {
		return NewError("RemoveDrawnObject").Diagram(diagramID).Context("drawn object not on diagram").Cause(ErrNotFound)
	}
	elementID := removed.ElementID
	diagram.Objects = kept

	keptConns := diagram.Connections[:0]
	for _, conn := range diagram.Connections {
		if conn.FromObjID != objID && conn.ToObjID != objID {
			keptConns = append(keptConns, conn)
		}
	}
	diagram.Connections = keptConns
	r.touchMeta(&diagram.Meta)

	// Drop the reverse-index entry only if no other drawn object on this
	// diagram is still bound to the same element
	if elementID != 0 {
		stillBound := false
		for _, obj := range diagram.Objects {
			if obj.ElementID == elementID {
				stillBound = true
				break
			}
		}
		if !stillBound {
			r.dropDiagramIndexLocked(elementID, diagramID)
		}
	}
	return nil
}

// AddDrawnConnection places a drawn connection between two drawn objects,
// optionally bound to a relationship
func (r *Repository) AddDrawnConnection(diagramID, relationshipID, fromObjID, toObjID uint64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, NewError("AddDrawnConnection").Diagram(diagramID).Cause(ErrClosed)
	}
	diagram, exists := r.diagrams[diagramID]
	if !exists {
		return 0, NewError("AddDrawnConnection").Diagram(diagramID).Cause(ErrNotFound)
	}
	if relationshipID != 0 {
		if _, exists := r.relationships[relationshipID]; !exists {
			return 0, NewError("AddDrawnConnection").Relationship(relationshipID).Context("binding target does not exist").Cause(ErrReferential)
		}
	}
	hasObj := func(objID uint64) bool {
		for _, obj := range diagram.Objects {
			if obj.ObjID == objID {
				return true
			}
		}
		return false
	}
	if !hasObj(fromObjID) || !hasObj(toObjID) {
		return 0, NewError("AddDrawnConnection").Diagram(diagramID).Context("endpoint object not on diagram").Cause(ErrReferential)
	}

	connID := diagram.nextObjID
	diagram.nextObjID++
	diagram.Connections = append(diagram.Connections, DrawnConnection{
		ConnID:         connID,
		RelationshipID: relationshipID,
		FromObjID:      fromObjID,
		ToObjID:        toObjID,
	})
	r.touchMeta(&diagram.Meta)
	return connID, nil
}

// SetDrawnObjectVisual writes back coordinate and visual-state fields. This is
// the rendering layer's only write path; hiding or locking is diagram-local
// and never touches the model.
func (r *Repository) SetDrawnObjectVisual(diagramID, objID uint64, x, y, width, height float64, hidden, locked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	diagram, exists := r.diagrams[diagramID]
	if !exists {
		return NewError("SetDrawnObjectVisual").Diagram(diagramID).Cause(ErrNotFound)
	}
	for i := range diagram.Objects {
		if diagram.Objects[i].ObjID == objID {
			diagram.Objects[i].X = x
			diagram.Objects[i].Y = y
			diagram.Objects[i].Width = width
			diagram.Objects[i].Height = height
			diagram.Objects[i].Hidden = hidden
			diagram.Objects[i].Locked = locked
			return nil
		}
	}
	return NewError("SetDrawnObjectVisual").Diagram(diagramID).Context("drawn object not on diagram").Cause(ErrNotFound)
}

// ElementDiagrams returns the IDs of diagrams with at least one drawn object
// bound to the element, maintained incrementally on every bind/unbind
func (r *Repository) ElementDiagrams(elementID uint64) []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint64, 0, len(r.elementDiagrams[elementID]))
	for id := range r.elementDiagrams[elementID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AllDiagrams returns every diagram in ID (creation) order
func (r *Repository) AllDiagrams() []*Diagram {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint64, 0, len(r.diagrams))
	for id := range r.diagrams {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	results := make([]*Diagram, 0, len(ids))
	for _, id := range ids {
		results = append(results, r.diagrams[id].Clone())
	}
	return results
}

// unbindElementFromDiagramLocked removes every drawn object bound to the
// element from the diagram, plus attached connections. Caller must hold the
// write lock.
func (r *Repository) unbindElementFromDiagramLocked(diagram *Diagram, elementID uint64) {
	removedObjs := make(map[uint64]struct{})
	kept := diagram.Objects[:0]
	for _, obj := range diagram.Objects {
		if obj.ElementID == elementID {
			removedObjs[obj.ObjID] = struct{}{}
			continue
		}
		kept = append(kept, obj)
	}
	diagram.Objects = kept

	keptConns := diagram.Connections[:0]
	for _, conn := range diagram.Connections {
		if _, drop := removedObjs[conn.FromObjID]; drop {
			continue
		}
		if _, drop := removedObjs[conn.ToObjID]; drop {
			continue
		}
		keptConns = append(keptConns, conn)
	}
	diagram.Connections = keptConns
}

// dropDiagramIndexLocked removes one reverse-index entry. Caller must hold
// the write lock.
func (r *Repository) dropDiagramIndexLocked(elementID, diagramID uint64) {
	if set, ok := r.elementDiagrams[elementID]; ok {
		delete(set, diagramID)
		if len(set) == 0 {
			delete(r.elementDiagrams, elementID)
		}
	}
}
