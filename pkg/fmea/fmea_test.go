package fmea

import (
	"math"
	"testing"

	"github.com/dd0wney/cluso-safety/pkg/config"
)

func annexDLibrary() *MechanismLibrary {
	return &MechanismLibrary{
		Name: "Annex D",
		Mechanisms: []*DiagnosticMechanism{
			{Name: "Lockstep core", Coverage: 0.99},
			{Name: "CRC on messages", Coverage: 0.90},
		},
	}
}

func TestRPN(t *testing.T) {
	entry := &Entry{Severity: 9, Occurrence: 3, Detection: 2}
	if entry.RPN() != 54 {
		t.Errorf("RPN = %d, want 54", entry.RPN())
	}
}

func TestCoverageResolution(t *testing.T) {
	lib := annexDLibrary()

	entry := &FmedaEntry{Mechanism: "Lockstep core"}
	if entry.Coverage(lib) != 0.99 {
		t.Errorf("mechanism coverage = %v, want 0.99", entry.Coverage(lib))
	}

	override := 0.5
	entry.CoverageOverride = &override
	if entry.Coverage(lib) != 0.5 {
		t.Errorf("override must win, got %v", entry.Coverage(lib))
	}

	blank := &FmedaEntry{}
	if blank.Coverage(lib) != 0 {
		t.Errorf("no mechanism means zero coverage, got %v", blank.Coverage(lib))
	}
	unknown := &FmedaEntry{Mechanism: "no such mechanism"}
	if unknown.Coverage(lib) != 0 {
		t.Errorf("unknown mechanism means zero coverage, got %v", unknown.Coverage(lib))
	}
}

func TestResidualContributions(t *testing.T) {
	lib := annexDLibrary()

	permanent := &FmedaEntry{
		FaultType:     FaultPermanent,
		ComponentFIT:  3844.68,
		FaultFraction: 1.0,
		Mechanism:     "Lockstep core",
	}
	got := permanent.SPFMContribution(lib)
	want := 3844.68 * (1 - 0.99)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("SPFM contribution = %v, want %v", got, want)
	}
	if permanent.LPFMContribution(lib) != 0 {
		t.Error("permanent fault must not contribute to LPFM")
	}

	transient := &FmedaEntry{
		FaultType:     FaultTransient,
		ComponentFIT:  100,
		FaultFraction: 0.5,
		Mechanism:     "CRC on messages",
	}
	got = transient.LPFMContribution(lib)
	want = 50 * (1 - 0.90)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("LPFM contribution = %v, want %v", got, want)
	}
	if transient.SPFMContribution(lib) != 0 {
		t.Error("transient fault must not contribute to SPFM")
	}
}

func TestAggregate(t *testing.T) {
	lib := annexDLibrary()
	doc := &FmedaDoc{
		Name: "FMEDA",
		Entries: []*FmedaEntry{
			{FaultType: FaultPermanent, ComponentFIT: 100, FaultFraction: 1.0, Mechanism: "Lockstep core"},
			{FaultType: FaultTransient, ComponentFIT: 100, FaultFraction: 1.0, Mechanism: "CRC on messages"},
		},
	}

	metrics := doc.Aggregate(lib)
	if math.Abs(metrics.TotalFIT-200) > 1e-9 {
		t.Errorf("total FIT = %v, want 200", metrics.TotalFIT)
	}
	if math.Abs(metrics.SPFM-1.0) > 1e-9 {
		t.Errorf("SPFM residual = %v, want 1.0", metrics.SPFM)
	}
	if math.Abs(metrics.LPFM-10.0) > 1e-9 {
		t.Errorf("LPFM residual = %v, want 10.0", metrics.LPFM)
	}
	// covered = 99 + 90 = 189 of 200
	if math.Abs(metrics.DC-0.945) > 1e-9 {
		t.Errorf("DC = %v, want 0.945", metrics.DC)
	}
	if doc.Metrics != metrics {
		t.Error("Aggregate must store the metrics on the document")
	}
}

func TestAggregateEmptyDocument(t *testing.T) {
	doc := &FmedaDoc{Name: "empty"}
	metrics := doc.Aggregate(nil)
	if metrics.TotalFIT != 0 || metrics.DC != 0 {
		t.Errorf("empty document metrics must be zero: %+v", metrics)
	}
}

func TestMeetsTargets(t *testing.T) {
	tables := config.DefaultTables()
	lib := annexDLibrary()

	good := &FmedaDoc{
		Name:       "good",
		TargetASIL: "D",
		Entries: []*FmedaEntry{
			{FaultType: FaultPermanent, ComponentFIT: 100, FaultFraction: 1.0, Mechanism: "Lockstep core"},
		},
	}
	if !good.MeetsTargets(lib, tables) {
		t.Error("99% covered permanent faults must meet the D SPFM target")
	}

	bad := &FmedaDoc{
		Name:       "bad",
		TargetASIL: "D",
		Entries: []*FmedaEntry{
			{FaultType: FaultPermanent, ComponentFIT: 100, FaultFraction: 1.0, Mechanism: "CRC on messages"},
		},
	}
	if bad.MeetsTargets(lib, tables) {
		t.Error("90% covered permanent faults must miss the D SPFM target")
	}

	// Unknown target ASIL passes vacuously
	unknown := &FmedaDoc{Name: "u", TargetASIL: "Z"}
	if !unknown.MeetsTargets(lib, tables) {
		t.Error("unknown target ASIL must pass")
	}
}

func TestReferencesMalfunction(t *testing.T) {
	doc := &Doc{Name: "FMEA", Entries: []*Entry{
		{Malfunction: "Unintended braking"},
	}}
	if !doc.ReferencesMalfunction("Unintended braking") {
		t.Error("reference not found")
	}
	if doc.ReferencesMalfunction("Other") {
		t.Error("phantom reference")
	}
}
