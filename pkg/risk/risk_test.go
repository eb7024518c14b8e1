package risk

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/cluso-safety/pkg/config"
	"github.com/dd0wney/cluso-safety/pkg/repository"
)

func TestASILBaseAndOrder(t *testing.T) {
	cases := []struct {
		in   ASIL
		base ASIL
	}{
		{"D", "D"},
		{"B(D)", "B"},
		{"QM(C)", "QM"},
		{"A(B)", "A"},
	}
	for _, tc := range cases {
		if got := tc.in.Base(); got != tc.base {
			t.Errorf("Base(%q) = %q, want %q", tc.in, got, tc.base)
		}
	}

	if Max("B(D)", "C") != "C" {
		t.Error("Max must compare by base letter")
	}
	if MaxOf(nil) != QM {
		t.Error("MaxOf over nothing must be QM")
	}
	if !ASIL("B(D)").IsDecomposed() || ASIL("B").IsDecomposed() {
		t.Error("IsDecomposed wrong")
	}
}

func TestResolveEntryRiskGraph(t *testing.T) {
	tables := config.DefaultTables()

	entry := &HaraEntry{Severity: 3, Controllability: 3, Exposure: 4}
	if _, err := ResolveEntry(entry, tables, nil); err != nil {
		t.Fatalf("ResolveEntry failed: %v", err)
	}
	if entry.ASIL != "D" {
		t.Errorf("S3/C3/E4 must derive ASIL D, got %q", entry.ASIL)
	}

	entry = &HaraEntry{Severity: 1, Controllability: 1, Exposure: 1}
	ResolveEntry(entry, tables, nil)
	if entry.ASIL != "QM" {
		t.Errorf("S1/C1/E1 must derive QM, got %q", entry.ASIL)
	}
}

func TestResolveEntryRangeChecks(t *testing.T) {
	tables := config.DefaultTables()

	cases := []HaraEntry{
		{Severity: 0, Controllability: 1, Exposure: 1},
		{Severity: 4, Controllability: 1, Exposure: 1},
		{Severity: 1, Controllability: 0, Exposure: 1},
		{Severity: 1, Controllability: 1, Exposure: 5},
	}
	for i := range cases {
		if _, err := ResolveEntry(&cases[i], tables, nil); err == nil {
			t.Errorf("entry %d with out-of-range level must fail", i)
		}
	}
}

func TestSeverityInheritance(t *testing.T) {
	tables := config.DefaultTables()
	sotif := &SotifDoc{
		Name:      "FI2TC",
		Direction: "fi2tc",
		Entries: []*SotifEntry{
			{ID: "TC-1", TriggeringCondition: "Heavy rain", Severity: 3},
		},
	}

	entry := &HaraEntry{
		Severity: 1, Controllability: 3, Exposure: 4,
		SeverityRef: "TC-1",
	}
	inherited, err := ResolveEntry(entry, tables, sotif)
	if err != nil {
		t.Fatalf("ResolveEntry failed: %v", err)
	}
	if !inherited {
		t.Error("overwrite of a differing manual severity must be reported")
	}
	if entry.Severity != 3 {
		t.Errorf("severity not inherited: %d", entry.Severity)
	}
	if entry.ASIL != "D" {
		t.Errorf("inherited severity must drive the risk graph: got %q", entry.ASIL)
	}

	// A dangling reference keeps the manual value
	entry = &HaraEntry{Severity: 2, Controllability: 2, Exposure: 2, SeverityRef: "TC-404"}
	inherited, err = ResolveEntry(entry, tables, sotif)
	if err != nil || inherited {
		t.Errorf("dangling severity ref must resolve manually: inherited=%v err=%v", inherited, err)
	}
	if entry.Severity != 2 {
		t.Errorf("manual severity lost: %d", entry.Severity)
	}
}

func TestValidateEntrySource(t *testing.T) {
	doc := &HaraDoc{Name: "HARA", Hazops: []string{"Brake HAZOP"}}

	if err := doc.ValidateEntrySource(&HaraEntry{SourceHazop: "Brake HAZOP"}); err != nil {
		t.Errorf("selected source must validate: %v", err)
	}
	if err := doc.ValidateEntrySource(&HaraEntry{}); err != nil {
		t.Errorf("empty source must validate: %v", err)
	}
	err := doc.ValidateEntrySource(&HaraEntry{SourceHazop: "Other HAZOP"})
	if !errors.Is(err, repository.ErrInconsistentState) {
		t.Errorf("expected ErrInconsistentState, got %v", err)
	}
}

func TestGoalASILTakesTheMaximum(t *testing.T) {
	docs := []*HaraDoc{
		{Name: "one", Entries: []*HaraEntry{
			{SafetyGoalID: 10, ASIL: "B"},
			{SafetyGoalID: 11, ASIL: "D"},
		}},
		{Name: "two", Entries: []*HaraEntry{
			{SafetyGoalID: 10, ASIL: "C"},
		}},
	}

	if got := GoalASIL(10, docs); got != "C" {
		t.Errorf("goal 10 ASIL = %q, want C", got)
	}
	if got := GoalASIL(11, docs); got != "D" {
		t.Errorf("goal 11 ASIL = %q, want D", got)
	}
	if got := GoalASIL(99, docs); got != QM {
		t.Errorf("unreferenced goal must be QM, got %q", got)
	}
}

func TestMultiDocLookupFirstWins(t *testing.T) {
	lookup := MultiDocLookup{
		{Name: "a", Entries: []*SotifEntry{{ID: "TC-1", Severity: 2}}},
		{Name: "b", Entries: []*SotifEntry{{ID: "TC-1", Severity: 3}, {ID: "TC-2", Severity: 1}}},
	}
	if sev, ok := lookup.SeverityFor("TC-1"); !ok || sev != 2 {
		t.Errorf("first document must win: got %d %v", sev, ok)
	}
	if sev, ok := lookup.SeverityFor("TC-2"); !ok || sev != 1 {
		t.Errorf("fallthrough failed: got %d %v", sev, ok)
	}
	if _, ok := lookup.SeverityFor("TC-404"); ok {
		t.Error("unknown reference must miss")
	}
}

// TestASILPropagationProperties verifies the max-propagation invariants for
// arbitrary row sets
func TestASILPropagationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	genASIL := gen.OneConstOf(QM, ASILA, ASILB, ASILC, ASILD)

	properties.Property("goal ASIL dominates every contributing row", prop.ForAll(
		func(levels []ASIL) bool {
			entries := make([]*HaraEntry, len(levels))
			for i, level := range levels {
				entries[i] = &HaraEntry{SafetyGoalID: 1, ASIL: level}
			}
			goal := GoalASIL(1, []*HaraDoc{{Name: "d", Entries: entries}})
			for _, level := range levels {
				if level.Order() > goal.Order() {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genASIL),
	))

	properties.Property("adding a row never lowers the goal ASIL", prop.ForAll(
		func(levels []ASIL, extra ASIL) bool {
			entries := make([]*HaraEntry, len(levels))
			for i, level := range levels {
				entries[i] = &HaraEntry{SafetyGoalID: 1, ASIL: level}
			}
			doc := &HaraDoc{Name: "d", Entries: entries}
			before := GoalASIL(1, []*HaraDoc{doc})
			doc.Entries = append(doc.Entries, &HaraEntry{SafetyGoalID: 1, ASIL: extra})
			after := GoalASIL(1, []*HaraDoc{doc})
			return after.Order() >= before.Order()
		},
		gen.SliceOf(genASIL),
		genASIL,
	))

	properties.TestingRun(t)
}
