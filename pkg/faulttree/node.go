// Package faulttree implements rooted fault-tree DAGs: cycle-checked edge
// inserts, bottom-up gate probability evaluation and minimal cut-set
// extraction with absorption.
package faulttree

import (
	"github.com/dd0wney/cluso-safety/pkg/reliability"
)

// NodeKind is the gate or leaf type of a fault-tree node
type NodeKind string

const (
	// KindTopEvent is the tree root; it evaluates via its Gate field
	KindTopEvent NodeKind = "top_event"
	// KindGateAND multiplies child probabilities
	KindGateAND NodeKind = "and"
	// KindGateOR computes 1 - product(1 - p_child)
	KindGateOR NodeKind = "or"
	// KindBasicEvent is a leaf converting FIT to probability
	KindBasicEvent NodeKind = "basic_event"
)

// Node is one fault-tree node. Basic events carry the FIT rate, formula
// selector and stored probability; gates carry children. Probability holds
// the last committed evaluation result.
type Node struct {
	ID   uint64   `yaml:"id"`
	Kind NodeKind `yaml:"kind"`
	Name string   `yaml:"name"`

	// Gate selects AND/OR semantics for top events; ignored elsewhere
	Gate NodeKind `yaml:"gate,omitempty"`

	// Basic-event probability inputs
	FIT        float64             `yaml:"fit,omitempty"`
	Formula    reliability.Formula `yaml:"formula,omitempty"`
	StoredProb float64             `yaml:"stored_prob,omitempty"`

	Probability float64 `yaml:"probability"`

	Children []uint64 `yaml:"children,omitempty"`

	// Traceability
	RequirementIDs []string `yaml:"requirement_ids,omitempty"`
	SafetyGoalID   uint64   `yaml:"safety_goal_id,omitempty"`

	// Malfunction binds a top-level event to the malfunction it models.
	// One malfunction may top at most one tree; the engine enforces the
	// single-bind rule across trees.
	Malfunction string `yaml:"malfunction,omitempty"`
}

// gateOp returns the effective gate semantics for a node
func (n *Node) gateOp() NodeKind {
	if n.Kind == KindTopEvent {
		if n.Gate == KindGateAND {
			return KindGateAND
		}
		return KindGateOR
	}
	return n.Kind
}

// IsGate reports whether the node combines children
func (n *Node) IsGate() bool {
	return n.Kind == KindTopEvent || n.Kind == KindGateAND || n.Kind == KindGateOR
}
