package faulttree

import (
	"github.com/dd0wney/cluso-safety/pkg/reliability"
	"github.com/dd0wney/cluso-safety/pkg/repository"
)

// Tree is a rooted fault-tree DAG. Subtree sharing is permitted; acyclicity
// is enforced on every edge insert. The tree registers with the repository
// as a document.
type Tree struct {
	Name   string           `yaml:"name"`
	TopID  uint64           `yaml:"top_id"`
	Nodes  map[uint64]*Node `yaml:"nodes"`
	Order  []uint64         `yaml:"order"` // node creation order, for deterministic round trips
	nextID uint64
}

// NewTree creates a tree with a top event of the given gate semantics
func NewTree(name string, topName string, gate NodeKind) *Tree {
	t := &Tree{
		Name:   name,
		Nodes:  make(map[uint64]*Node),
		nextID: 1,
	}
	top := &Node{
		ID:   t.allocID(),
		Kind: KindTopEvent,
		Name: topName,
		Gate: gate,
	}
	t.Nodes[top.ID] = top
	t.Order = append(t.Order, top.ID)
	t.TopID = top.ID
	return t
}

// DocName implements repository.Document
func (t *Tree) DocName() string { return t.Name }

// DocKind implements repository.Document
func (t *Tree) DocKind() string { return "fault_tree" }

func (t *Tree) allocID() uint64 {
	id := t.nextID
	t.nextID++
	return id
}

// RestoreIDCounter re-seeds the node ID allocator after a snapshot load
func (t *Tree) RestoreIDCounter() {
	var max uint64
	for id := range t.Nodes {
		if id > max {
			max = id
		}
	}
	t.nextID = max + 1
}

// Top returns the top event node
func (t *Tree) Top() *Node {
	return t.Nodes[t.TopID]
}

// GetNode returns a node by ID
func (t *Tree) GetNode(id uint64) (*Node, error) {
	node, exists := t.Nodes[id]
	if !exists {
		return nil, repository.NewError("GetNode").Entity("fault tree node", t.Name).Cause(repository.ErrNotFound)
	}
	return node, nil
}

// AddGate creates an AND or OR gate node
func (t *Tree) AddGate(name string, kind NodeKind) (*Node, error) {
	if kind != KindGateAND && kind != KindGateOR {
		return nil, repository.NewError("AddGate").Entity("fault tree node", name).
			Context("kind must be an AND or OR gate").Cause(repository.ErrInvalidOperation)
	}
	node := &Node{ID: t.allocID(), Kind: kind, Name: name}
	t.Nodes[node.ID] = node
	t.Order = append(t.Order, node.ID)
	return node, nil
}

// AddBasicEvent creates a basic-event leaf with its probability inputs
func (t *Tree) AddBasicEvent(name string, fit float64, formula reliability.Formula, storedProb float64) (*Node, error) {
	if err := formula.Validate(); err != nil {
		return nil, repository.NewError("AddBasicEvent").Entity("fault tree node", name).
			Context(err.Error()).Cause(repository.ErrInvalidOperation)
	}
	node := &Node{
		ID:         t.allocID(),
		Kind:       KindBasicEvent,
		Name:       name,
		FIT:        fit,
		Formula:    formula,
		StoredProb: storedProb,
	}
	t.Nodes[node.ID] = node
	t.Order = append(t.Order, node.ID)
	return node, nil
}

// AddChild inserts the edge parent -> child. Basic events cannot take
// children, and an edge that would make the parent reachable from the child
// is rejected with ErrCycle, leaving the tree unchanged.
func (t *Tree) AddChild(parentID, childID uint64) error {
	parent, exists := t.Nodes[parentID]
	if !exists {
		return repository.NewError("AddChild").Entity("fault tree node", t.Name).
			Context("parent does not exist").Cause(repository.ErrReferential)
	}
	child, exists := t.Nodes[childID]
	if !exists {
		return repository.NewError("AddChild").Entity("fault tree node", t.Name).
			Context("child does not exist").Cause(repository.ErrReferential)
	}
	if !parent.IsGate() {
		return repository.NewError("AddChild").Entity("fault tree node", parent.Name).
			Context("basic events cannot take children").Cause(repository.ErrInvalidOperation)
	}
	if parentID == childID || t.reaches(childID, parentID) {
		return repository.NewError("AddChild").Entity("fault tree node", parent.Name).
			Context("edge would close a loop through " + child.Name).Cause(repository.ErrCycle)
	}

	parent.Children = append(parent.Children, childID)
	return nil
}

// RemoveChild removes the edge parent -> child
func (t *Tree) RemoveChild(parentID, childID uint64) error {
	parent, exists := t.Nodes[parentID]
	if !exists {
		return repository.NewError("RemoveChild").Entity("fault tree node", t.Name).
			Context("parent does not exist").Cause(repository.ErrReferential)
	}
	for i, id := range parent.Children {
		if id == childID {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return nil
		}
	}
	return repository.NewError("RemoveChild").Entity("fault tree node", parent.Name).
		Context("edge not present").Cause(repository.ErrNotFound)
}

// reaches reports whether target is reachable from start following child
// edges, using DFS with three-color marking: WHITE unvisited, GRAY in the
// stack, BLACK finished. The tree is acyclic by construction, so the colors
// here only prevent re-visiting shared subtrees.
func (t *Tree) reaches(start, target uint64) bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[uint64]int)

	var dfs func(id uint64) bool
	dfs = func(id uint64) bool {
		if id == target {
			return true
		}
		color[id] = gray
		node := t.Nodes[id]
		if node != nil {
			for _, childID := range node.Children {
				if color[childID] == white && dfs(childID) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}
	return dfs(start)
}

// BasicEvents returns the basic-event leaves in creation order
func (t *Tree) BasicEvents() []*Node {
	events := make([]*Node, 0)
	for _, id := range t.Order {
		if node := t.Nodes[id]; node != nil && node.Kind == KindBasicEvent {
			events = append(events, node)
		}
	}
	return events
}

// ReferencesMalfunction reports whether any node binds the malfunction
func (t *Tree) ReferencesMalfunction(malfunction string) bool {
	for _, node := range t.Nodes {
		if node.Malfunction == malfunction {
			return true
		}
	}
	return false
}
