package repository

import "fmt"

// Restore operations insert entities with their original identity and
// metadata during snapshot load. They bypass the author stamp but still
// rebuild every index, so a restored repository answers queries exactly
// like the captured one. Load order: elements, then relationships, then
// diagrams, then RestoreIDCounter.

// RestoreElement inserts an element preserving its ID and metadata
func (r *Repository) RestoreElement(element *Element) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return NewError("RestoreElement").Element(element.ID).Cause(ErrClosed)
	}
	if element.ID == 0 {
		return NewError("RestoreElement").Element(element.ID).
			Context("element ID is zero").Cause(ErrInvalidOperation)
	}
	if _, taken := r.elements[element.ID]; taken {
		return NewError("RestoreElement").Element(element.ID).Cause(ErrDuplicate)
	}

	stored := element.Clone()
	r.elements[stored.ID] = stored
	r.elementsByKind[stored.Kind] = append(r.elementsByKind[stored.Kind], stored.ID)
	r.stats.ElementCount++
	return nil
}

// RestoreRelationship inserts a relationship preserving its ID and metadata.
// Both endpoints must already be restored.
func (r *Repository) RestoreRelationship(rel *Relationship) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return NewError("RestoreRelationship").Relationship(rel.ID).Cause(ErrClosed)
	}
	if rel.ID == 0 {
		return NewError("RestoreRelationship").Relationship(rel.ID).
			Context("relationship ID is zero").Cause(ErrInvalidOperation)
	}
	if _, taken := r.relationships[rel.ID]; taken {
		return NewError("RestoreRelationship").Relationship(rel.ID).Cause(ErrDuplicate)
	}
	if _, exists := r.elements[rel.FromID]; !exists {
		return NewError("RestoreRelationship").Relationship(rel.ID).
			Context(fmt.Sprintf("source element %d does not exist", rel.FromID)).Cause(ErrReferential)
	}
	if _, exists := r.elements[rel.ToID]; !exists {
		return NewError("RestoreRelationship").Relationship(rel.ID).
			Context(fmt.Sprintf("target element %d does not exist", rel.ToID)).Cause(ErrReferential)
	}

	stored := rel.Clone()
	r.relationships[stored.ID] = stored
	r.outgoing[stored.FromID] = append(r.outgoing[stored.FromID], stored.ID)
	r.incoming[stored.ToID] = append(r.incoming[stored.ToID], stored.ID)
	r.stats.RelationshipCount++
	return nil
}

// RestoreDiagram inserts a diagram preserving its ID, drawn records and
// object-ID counter. Bound elements must already be restored.
func (r *Repository) RestoreDiagram(diagram *Diagram, nextObjID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return NewError("RestoreDiagram").Diagram(diagram.ID).Cause(ErrClosed)
	}
	if diagram.ID == 0 {
		return NewError("RestoreDiagram").Diagram(diagram.ID).
			Context("diagram ID is zero").Cause(ErrInvalidOperation)
	}
	if _, taken := r.diagrams[diagram.ID]; taken {
		return NewError("RestoreDiagram").Diagram(diagram.ID).Cause(ErrDuplicate)
	}
	for _, existing := range r.diagrams {
		if existing.Name == diagram.Name {
			return NewError("RestoreDiagram").Diagram(diagram.ID).
				Context(fmt.Sprintf("diagram name %q already exists", diagram.Name)).Cause(ErrDuplicate)
		}
	}
	for _, obj := range diagram.Objects {
		if obj.ElementID == 0 {
			continue
		}
		if _, exists := r.elements[obj.ElementID]; !exists {
			return NewError("RestoreDiagram").Diagram(diagram.ID).
				Context(fmt.Sprintf("bound element %d does not exist", obj.ElementID)).Cause(ErrReferential)
		}
	}

	stored := diagram.Clone()
	stored.nextObjID = nextObjID
	r.diagrams[stored.ID] = stored
	for _, obj := range stored.Objects {
		if obj.ElementID == 0 {
			continue
		}
		if r.elementDiagrams[obj.ElementID] == nil {
			r.elementDiagrams[obj.ElementID] = make(map[uint64]struct{})
		}
		r.elementDiagrams[obj.ElementID][stored.ID] = struct{}{}
	}
	r.stats.DiagramCount++
	return nil
}
