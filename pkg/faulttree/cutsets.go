package faulttree

import (
	"sort"

	"github.com/dd0wney/cluso-safety/pkg/repository"
)

// CutSet is a set of basic-event node IDs whose joint failure causes the
// top event
type CutSet map[uint64]struct{}

// contains reports whether cs is a superset of other
func (cs CutSet) contains(other CutSet) bool {
	if len(other) > len(cs) {
		return false
	}
	for id := range other {
		if _, ok := cs[id]; !ok {
			return false
		}
	}
	return true
}

// clone copies a cut set
func (cs CutSet) clone() CutSet {
	out := make(CutSet, len(cs))
	for id := range cs {
		out[id] = struct{}{}
	}
	return out
}

// union merges two cut sets into a new one
func union(a, b CutSet) CutSet {
	out := a.clone()
	for id := range b {
		out[id] = struct{}{}
	}
	return out
}

// MinimalCutSets extracts the minimal cut sets of the tree bottom-up:
// a basic event yields its singleton, an OR gate the union of its children's
// lists, an AND gate the cross-product union. Absorption then removes any
// cut set that properly contains another. The result is deterministic:
// sets are sorted by size, then lexicographically by member IDs.
func (t *Tree) MinimalCutSets() ([]CutSet, error) {
	memo := make(map[uint64][]CutSet)

	var visit func(id uint64) ([]CutSet, error)
	visit = func(id uint64) ([]CutSet, error) {
		if sets, done := memo[id]; done {
			return sets, nil
		}
		node, exists := t.Nodes[id]
		if !exists {
			return nil, repository.NewError("MinimalCutSets").Entity("fault tree", t.Name).
				Cause(repository.ErrReferential)
		}

		var sets []CutSet
		switch {
		case node.Kind == KindBasicEvent:
			sets = []CutSet{{id: struct{}{}}}
		case node.gateOp() == KindGateAND:
			sets = []CutSet{{}}
			for _, childID := range node.Children {
				childSets, err := visit(childID)
				if err != nil {
					return nil, err
				}
				product := make([]CutSet, 0, len(sets)*len(childSets))
				for _, left := range sets {
					for _, right := range childSets {
						product = append(product, union(left, right))
					}
				}
				sets = product
			}
			if len(node.Children) == 0 {
				sets = nil
			}
		default: // OR
			for _, childID := range node.Children {
				childSets, err := visit(childID)
				if err != nil {
					return nil, err
				}
				sets = append(sets, childSets...)
			}
		}

		memo[id] = sets
		return sets, nil
	}

	sets, err := visit(t.TopID)
	if err != nil {
		return nil, err
	}
	return absorb(sets), nil
}

// absorb removes every cut set that properly contains another, then sorts
// the survivors for a deterministic order
func absorb(sets []CutSet) []CutSet {
	minimal := make([]CutSet, 0, len(sets))
	for i, candidate := range sets {
		absorbed := false
		for j, other := range sets {
			if i == j {
				continue
			}
			if candidate.contains(other) && len(other) < len(candidate) {
				absorbed = true
				break
			}
			// Equal sets: keep only the first occurrence
			if len(other) == len(candidate) && candidate.contains(other) && j < i {
				absorbed = true
				break
			}
		}
		if !absorbed {
			minimal = append(minimal, candidate)
		}
	}

	sort.Slice(minimal, func(i, j int) bool {
		a, b := sortedIDs(minimal[i]), sortedIDs(minimal[j])
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return minimal
}

// sortedIDs returns a cut set's members in ascending order
func sortedIDs(cs CutSet) []uint64 {
	ids := make([]uint64, 0, len(cs))
	for id := range cs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IDs exposes a cut set's members in ascending order for display and tests
func (cs CutSet) IDs() []uint64 {
	return sortedIDs(cs)
}
