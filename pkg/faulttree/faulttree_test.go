package faulttree

import (
	"errors"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/cluso-safety/pkg/reliability"
	"github.com/dd0wney/cluso-safety/pkg/repository"
)

func TestTreeConstruction(t *testing.T) {
	tree := NewTree("FTA", "Top event", KindGateOR)

	if tree.Top() == nil || tree.Top().Kind != KindTopEvent {
		t.Fatal("tree must start with a top event")
	}
	if tree.DocKind() != "fault_tree" {
		t.Errorf("DocKind = %q", tree.DocKind())
	}

	gate, err := tree.AddGate("AND gate", KindGateAND)
	if err != nil {
		t.Fatalf("AddGate failed: %v", err)
	}
	if _, err := tree.AddGate("bad", KindBasicEvent); !errors.Is(err, repository.ErrInvalidOperation) {
		t.Errorf("basic event is not a gate kind: %v", err)
	}

	leaf, err := tree.AddBasicEvent("leaf", 10, reliability.FormulaExponential, 0)
	if err != nil {
		t.Fatalf("AddBasicEvent failed: %v", err)
	}
	if _, err := tree.AddBasicEvent("bad", 10, reliability.Formula("fancy"), 0); err == nil {
		t.Error("unknown formula must be rejected")
	}

	if err := tree.AddChild(tree.TopID, gate.ID); err != nil {
		t.Fatalf("AddChild failed: %v", err)
	}
	if err := tree.AddChild(gate.ID, leaf.ID); err != nil {
		t.Fatalf("AddChild failed: %v", err)
	}
	if err := tree.AddChild(leaf.ID, gate.ID); !errors.Is(err, repository.ErrInvalidOperation) {
		t.Errorf("basic events cannot take children: %v", err)
	}
}

func TestCycleRejection(t *testing.T) {
	tree := NewTree("FTA", "Top", KindGateOR)
	g1, _ := tree.AddGate("g1", KindGateAND)
	g2, _ := tree.AddGate("g2", KindGateOR)

	tree.AddChild(tree.TopID, g1.ID)
	tree.AddChild(g1.ID, g2.ID)

	if err := tree.AddChild(g2.ID, g1.ID); !errors.Is(err, repository.ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if err := tree.AddChild(g2.ID, tree.TopID); !errors.Is(err, repository.ErrCycle) {
		t.Fatalf("expected ErrCycle for loop through top, got %v", err)
	}
	if err := tree.AddChild(g1.ID, g1.ID); !errors.Is(err, repository.ErrCycle) {
		t.Fatalf("expected ErrCycle for self edge, got %v", err)
	}
	// A failed insert leaves the children untouched
	if len(tree.Nodes[g2.ID].Children) != 0 {
		t.Error("rejected edge must not be recorded")
	}
}

func TestSharedSubtreeIsAllowed(t *testing.T) {
	tree := NewTree("FTA", "Top", KindGateOR)
	g1, _ := tree.AddGate("g1", KindGateAND)
	g2, _ := tree.AddGate("g2", KindGateAND)
	shared, _ := tree.AddBasicEvent("shared", 10, reliability.FormulaConstant, 0.1)

	tree.AddChild(tree.TopID, g1.ID)
	tree.AddChild(tree.TopID, g2.ID)
	if err := tree.AddChild(g1.ID, shared.ID); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddChild(g2.ID, shared.ID); err != nil {
		t.Fatalf("sharing a subtree must be allowed: %v", err)
	}
}

func TestEvaluateGateSemantics(t *testing.T) {
	tree := NewTree("FTA", "Top", KindGateAND)
	a, _ := tree.AddBasicEvent("A", 0, reliability.FormulaConstant, 0.5)
	b, _ := tree.AddBasicEvent("B", 0, reliability.FormulaConstant, 0.5)
	tree.AddChild(tree.TopID, a.ID)
	tree.AddChild(tree.TopID, b.ID)

	eval, err := tree.Evaluate(1)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got := eval.TopProbability(tree); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("AND(0.5, 0.5) = %v, want 0.25", got)
	}

	// Commit is what writes the values back
	if tree.Top().Probability != 0 {
		t.Error("Evaluate must not touch the tree before Commit")
	}
	tree.Commit(eval)
	if tree.Top().Probability != 0.25 {
		t.Errorf("committed probability = %v", tree.Top().Probability)
	}

	or := NewTree("FTA2", "Top", KindGateOR)
	c, _ := or.AddBasicEvent("C", 0, reliability.FormulaConstant, 0.5)
	d, _ := or.AddBasicEvent("D", 0, reliability.FormulaConstant, 0.5)
	or.AddChild(or.TopID, c.ID)
	or.AddChild(or.TopID, d.ID)

	eval, _ = or.Evaluate(1)
	if got := eval.TopProbability(or); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("OR(0.5, 0.5) = %v, want 0.75", got)
	}
}

func TestEvaluateWarnsOnNonPhysicalProbability(t *testing.T) {
	tree := NewTree("FTA", "Top", KindGateOR)
	leaf, _ := tree.AddBasicEvent("hot leaf", 2e8, reliability.FormulaLinear, 0)
	tree.AddChild(tree.TopID, leaf.ID)

	eval, err := tree.Evaluate(10000)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(eval.Warnings) != 1 || eval.Warnings[0].NodeID != leaf.ID {
		t.Errorf("expected one warning for the linear leaf, got %+v", eval.Warnings)
	}
}

func TestMinimalCutSets(t *testing.T) {
	// AND(OR(A, B), OR(C, D)) -> {A,C} {A,D} {B,C} {B,D}
	tree := NewTree("FTA", "Top", KindGateAND)
	or1, _ := tree.AddGate("or1", KindGateOR)
	or2, _ := tree.AddGate("or2", KindGateOR)
	a, _ := tree.AddBasicEvent("A", 0, reliability.FormulaConstant, 0.1)
	b, _ := tree.AddBasicEvent("B", 0, reliability.FormulaConstant, 0.1)
	c, _ := tree.AddBasicEvent("C", 0, reliability.FormulaConstant, 0.1)
	d, _ := tree.AddBasicEvent("D", 0, reliability.FormulaConstant, 0.1)

	tree.AddChild(tree.TopID, or1.ID)
	tree.AddChild(tree.TopID, or2.ID)
	tree.AddChild(or1.ID, a.ID)
	tree.AddChild(or1.ID, b.ID)
	tree.AddChild(or2.ID, c.ID)
	tree.AddChild(or2.ID, d.ID)

	sets, err := tree.MinimalCutSets()
	if err != nil {
		t.Fatalf("MinimalCutSets failed: %v", err)
	}
	want := [][]uint64{
		{a.ID, c.ID}, {a.ID, d.ID}, {b.ID, c.ID}, {b.ID, d.ID},
	}
	if len(sets) != len(want) {
		t.Fatalf("got %d cut sets, want %d", len(sets), len(want))
	}
	for i, ws := range want {
		got := sets[i].IDs()
		if len(got) != len(ws) || got[0] != ws[0] || got[1] != ws[1] {
			t.Errorf("cut set %d = %v, want %v", i, got, ws)
		}
	}
}

func TestMinimalCutSetsAbsorption(t *testing.T) {
	// OR(A, AND(A, B)) -> {A}: the superset {A,B} is absorbed
	tree := NewTree("FTA", "Top", KindGateOR)
	and, _ := tree.AddGate("and", KindGateAND)
	a, _ := tree.AddBasicEvent("A", 0, reliability.FormulaConstant, 0.1)
	b, _ := tree.AddBasicEvent("B", 0, reliability.FormulaConstant, 0.1)

	tree.AddChild(tree.TopID, a.ID)
	tree.AddChild(tree.TopID, and.ID)
	tree.AddChild(and.ID, a.ID)
	tree.AddChild(and.ID, b.ID)

	sets, err := tree.MinimalCutSets()
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 1 {
		t.Fatalf("got %d cut sets, want 1", len(sets))
	}
	if ids := sets[0].IDs(); len(ids) != 1 || ids[0] != a.ID {
		t.Errorf("surviving set = %v, want {%d}", ids, a.ID)
	}
}

func TestMeetsPMHFTarget(t *testing.T) {
	tree := NewTree("FTA", "Top", KindGateOR)
	leaf, _ := tree.AddBasicEvent("leaf", 10, reliability.FormulaLinear, 0) // 1e-8/h
	tree.AddChild(tree.TopID, leaf.ID)

	eval, _ := tree.Evaluate(10000)
	tree.Commit(eval)

	if !tree.MeetsPMHFTarget(1e-8, 10000) {
		t.Error("1e-8/h over the mission must meet the 1e-8/h target")
	}
	if tree.MeetsPMHFTarget(1e-9, 10000) {
		t.Error("1e-8/h must miss a 1e-9/h target")
	}
}

func TestRestoreIDCounter(t *testing.T) {
	tree := NewTree("FTA", "Top", KindGateOR)
	tree.AddBasicEvent("A", 0, reliability.FormulaConstant, 0)
	tree.nextID = 1 // simulate a fresh allocator after a YAML load
	tree.RestoreIDCounter()

	node, err := tree.AddGate("g", KindGateAND)
	if err != nil {
		t.Fatal(err)
	}
	if _, clash := tree.Nodes[node.ID]; !clash {
		t.Fatal("node not stored")
	}
	if node.ID <= 2 {
		t.Errorf("re-seeded allocator reused an ID: %d", node.ID)
	}
}

// TestAbsorptionProperties checks the minimality invariant for arbitrary
// two-level trees
func TestAbsorptionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	// Arbitrary OR of ANDs over a small leaf alphabet
	properties.Property("no returned cut set contains another", prop.ForAll(
		func(groups [][]int) bool {
			tree := NewTree("p", "Top", KindGateOR)
			leaves := make(map[int]uint64)
			leafID := func(n int) uint64 {
				n = ((n % 5) + 5) % 5
				if id, ok := leaves[n]; ok {
					return id
				}
				leaf, _ := tree.AddBasicEvent("leaf", 0, reliability.FormulaConstant, 0.1)
				leaves[n] = leaf.ID
				return leaf.ID
			}
			for _, group := range groups {
				if len(group) == 0 {
					continue
				}
				and, _ := tree.AddGate("and", KindGateAND)
				tree.AddChild(tree.TopID, and.ID)
				for _, n := range group {
					tree.AddChild(and.ID, leafID(n))
				}
			}

			sets, err := tree.MinimalCutSets()
			if err != nil {
				return false
			}
			for i, a := range sets {
				for j, b := range sets {
					if i == j {
						continue
					}
					if a.contains(b) {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.SliceOf(gen.IntRange(0, 9))),
	))

	properties.TestingRun(t)
}
