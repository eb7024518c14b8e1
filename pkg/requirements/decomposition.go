package requirements

import (
	"fmt"

	"github.com/dd0wney/cluso-safety/pkg/config"
	"github.com/dd0wney/cluso-safety/pkg/repository"
	"github.com/dd0wney/cluso-safety/pkg/risk"
)

// DecompositionPairs returns the allowed child ASIL pairs for a parent
// level, per the configured ISO 26262 schemes. The base level selects the
// scheme, so a "B(D)" parent decomposes with the "B" options.
func DecompositionPairs(parent risk.ASIL, tables *config.Tables) []config.DecompositionPair {
	return tables.DecompositionSchemes[string(parent.Base())]
}

// Decompose splits a requirement into two children whose ASIL pair is the
// caller-selected entry of the parent's decomposition scheme. QM-level
// requirements cannot be decomposed. Children inherit the parent's type,
// text and CAL, start in draft, and trace the parent through the
// decomposedInto link (ParentID/ChildIDs).
func (r *Registry) Decompose(parentID string, pairIndex int, tables *config.Tables) (*Requirement, *Requirement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent, exists := r.reqs[parentID]
	if !exists {
		return nil, nil, repository.NewError("Decompose").Entity("requirement", parentID).Cause(repository.ErrNotFound)
	}
	if parent.ASIL.Base() == risk.QM {
		return nil, nil, repository.NewError("Decompose").Entity("requirement", parentID).
			Context("QM requirements cannot be decomposed").Cause(repository.ErrInvalidOperation)
	}

	pairs := tables.DecompositionSchemes[string(parent.ASIL.Base())]
	if len(pairs) == 0 {
		return nil, nil, repository.NewError("Decompose").Entity("requirement", parentID).
			Context(fmt.Sprintf("no decomposition scheme for ASIL %s", parent.ASIL.Base())).
			Cause(repository.ErrInvalidOperation)
	}
	if pairIndex < 0 || pairIndex >= len(pairs) {
		return nil, nil, repository.NewError("Decompose").Entity("requirement", parentID).
			Context(fmt.Sprintf("pair index %d out of range for ASIL %s", pairIndex, parent.ASIL.Base())).
			Cause(repository.ErrInvalidOperation)
	}
	pair := pairs[pairIndex]

	first := r.newChildLocked(parent, "a", risk.ASIL(pair.First))
	second := r.newChildLocked(parent, "b", risk.ASIL(pair.Second))
	parent.ChildIDs = append(parent.ChildIDs, first.ID, second.ID)

	return first, second, nil
}

// newChildLocked creates one decomposition child. Caller must hold the
// write lock and guarantee ID uniqueness via the suffix.
func (r *Registry) newChildLocked(parent *Requirement, suffix string, asil risk.ASIL) *Requirement {
	child := &Requirement{
		ID:       parent.ID + "-" + suffix,
		Type:     parent.Type,
		Text:     parent.Text,
		ASIL:     asil,
		CAL:      parent.CAL,
		Status:   StatusDraft,
		ParentID: parent.ID,
	}
	// Disambiguate if the parent was decomposed before
	for i := 2; ; i++ {
		if _, taken := r.reqs[child.ID]; !taken {
			break
		}
		child.ID = fmt.Sprintf("%s-%s%d", parent.ID, suffix, i)
	}
	r.reqs[child.ID] = child
	r.order = append(r.order, child.ID)
	return child
}
