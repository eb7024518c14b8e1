package faulttree

import (
	"fmt"

	"github.com/dd0wney/cluso-safety/pkg/reliability"
	"github.com/dd0wney/cluso-safety/pkg/repository"
)

// Warning flags a non-fatal finding from an evaluation pass, such as a
// non-physical linear probability
type Warning struct {
	NodeID  uint64
	Message string
}

// Evaluation is the result of one bottom-up probability pass. It is computed
// without touching the tree; Commit writes the probabilities back in one
// step, so a failed or abandoned pass never leaves the tree half-updated.
type Evaluation struct {
	Probabilities map[uint64]float64
	Warnings      []Warning
}

// TopProbability returns the evaluated probability of the top event
func (e *Evaluation) TopProbability(t *Tree) float64 {
	return e.Probabilities[t.TopID]
}

// Evaluate runs a bottom-up gate evaluation against the mission exposure
// time tau (hours). AND gates multiply child probabilities, OR gates compute
// 1 - product(1 - p), basic events convert FIT via their formula selector.
// Shared subtrees evaluate once.
func (t *Tree) Evaluate(tau float64) (*Evaluation, error) {
	eval := &Evaluation{Probabilities: make(map[uint64]float64, len(t.Nodes))}

	var visit func(id uint64) (float64, error)
	visit = func(id uint64) (float64, error) {
		if p, done := eval.Probabilities[id]; done {
			return p, nil
		}
		node, exists := t.Nodes[id]
		if !exists {
			return 0, repository.NewError("Evaluate").Entity("fault tree", t.Name).
				Context(fmt.Sprintf("child %d does not exist", id)).Cause(repository.ErrReferential)
		}

		var p float64
		switch {
		case node.Kind == KindBasicEvent:
			var nonPhysical bool
			p, nonPhysical = reliability.Probability(node.Formula, node.FIT, tau, node.StoredProb)
			if nonPhysical {
				eval.Warnings = append(eval.Warnings, Warning{
					NodeID:  id,
					Message: fmt.Sprintf("linear probability %.4g exceeds 1 for %q; result is non-physical", p, node.Name),
				})
			}
		case node.gateOp() == KindGateAND:
			p = 1.0
			for _, childID := range node.Children {
				cp, err := visit(childID)
				if err != nil {
					return 0, err
				}
				p *= cp
			}
			if len(node.Children) == 0 {
				p = 0.0
			}
		default: // OR
			q := 1.0
			for _, childID := range node.Children {
				cp, err := visit(childID)
				if err != nil {
					return 0, err
				}
				q *= 1 - cp
			}
			p = 1 - q
		}

		eval.Probabilities[id] = p
		return p, nil
	}

	if _, err := visit(t.TopID); err != nil {
		return nil, err
	}
	return eval, nil
}

// Commit writes an evaluation's probabilities onto the tree nodes. Only
// nodes reached by the pass are touched; the write is all-or-nothing per
// recompute pass because the evaluation itself either completed or errored.
func (t *Tree) Commit(eval *Evaluation) {
	for id, p := range eval.Probabilities {
		if node, exists := t.Nodes[id]; exists {
			node.Probability = p
		}
	}
}

// MeetsPMHFTarget checks the committed top-event probability against a
// per-hour target scaled by the mission time
func (t *Tree) MeetsPMHFTarget(target, tau float64) bool {
	if tau <= 0 {
		tau = 1.0
	}
	return t.Top().Probability <= target*tau
}
