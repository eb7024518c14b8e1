package risk

import (
	"fmt"

	"github.com/dd0wney/cluso-safety/pkg/config"
	"github.com/dd0wney/cluso-safety/pkg/repository"
)

// HaraEntry is one risk-assessment row. Severity, controllability and
// exposure are the numeric ISO 26262 levels; the ASIL is derived via the
// risk graph and never entered directly.
type HaraEntry struct {
	Malfunction     string `yaml:"malfunction"`
	Hazard          string `yaml:"hazard"`
	Scenario        string `yaml:"scenario"`
	Severity        int    `yaml:"severity"`
	SevRationale    string `yaml:"sev_rationale,omitempty"`
	Controllability int    `yaml:"controllability"`
	ContRationale   string `yaml:"cont_rationale,omitempty"`
	Exposure        int    `yaml:"exposure"`
	ExpRationale    string `yaml:"exp_rationale,omitempty"`
	ASIL            ASIL   `yaml:"asil"`
	SafetyGoalID    uint64 `yaml:"safety_goal_id"` // element ID of the referenced SafetyGoal

	// SourceHazop names the HAZOP the malfunction was taken from; it must
	// be one of the owning document's selected HAZOPs
	SourceHazop string `yaml:"source_hazop,omitempty"`

	// SeverityRef optionally links a FI2TC/TC2FI entry. When set, that
	// entry's severity is authoritative and overwrites the manual value on
	// every resolve (documented behavior carried over from the source tool).
	SeverityRef string `yaml:"severity_ref,omitempty"`
}

// HaraDoc is a risk assessment derived from one or more HAZOPs
type HaraDoc struct {
	Name     string       `yaml:"name"`
	Hazops   []string     `yaml:"hazops"` // selected source HAZOP document names
	Entries  []*HaraEntry `yaml:"entries"`
	Status   string       `yaml:"status"`
	Approved bool         `yaml:"approved"`
}

// DocName implements repository.Document
func (d *HaraDoc) DocName() string { return d.Name }

// DocKind implements repository.Document
func (d *HaraDoc) DocKind() string { return "hara" }

// hasHazop reports whether the document selected the named HAZOP
func (d *HaraDoc) hasHazop(name string) bool {
	for _, h := range d.Hazops {
		if h == name {
			return true
		}
	}
	return false
}

// SeverityLookup resolves a SeverityRef to an inherited severity. Implemented
// by the SOTIF documents (FI2TC/TC2FI).
type SeverityLookup interface {
	// SeverityFor returns the severity for a named triggering-condition
	// entry; ok is false when the reference is unknown
	SeverityFor(ref string) (severity int, ok bool)
}

// ResolveEntry recomputes one row: severity inheritance first, then the risk
// graph. Returns the inherited severity flag so callers can surface the
// silent overwrite.
func ResolveEntry(entry *HaraEntry, tables *config.Tables, sotif SeverityLookup) (inherited bool, err error) {
	if entry.SeverityRef != "" && sotif != nil {
		if sev, ok := sotif.SeverityFor(entry.SeverityRef); ok {
			inherited = sev != entry.Severity
			entry.Severity = sev
		}
	}
	if entry.Severity < 1 || entry.Severity > 3 {
		return inherited, fmt.Errorf("severity %d out of range 1-3", entry.Severity)
	}
	if entry.Controllability < 1 || entry.Controllability > 3 {
		return inherited, fmt.Errorf("controllability %d out of range 1-3", entry.Controllability)
	}
	if entry.Exposure < 1 || entry.Exposure > 4 {
		return inherited, fmt.Errorf("exposure %d out of range 1-4", entry.Exposure)
	}
	entry.ASIL = ASIL(tables.LookupASIL(entry.Severity, entry.Controllability, entry.Exposure))
	return inherited, nil
}

// ValidateEntrySource checks that a row's source HAZOP belongs to the
// document's selected set. A mismatch is an inconsistent-state error reported
// against the owning document.
func (d *HaraDoc) ValidateEntrySource(entry *HaraEntry) error {
	if entry.SourceHazop == "" || d.hasHazop(entry.SourceHazop) {
		return nil
	}
	return repository.NewError("ResolveHara").Document(d.Name).
		Context(fmt.Sprintf("row references HAZOP %q outside the document's selected set", entry.SourceHazop)).
		Cause(repository.ErrInconsistentState)
}

// GoalASIL computes a safety goal's ASIL: the maximum over every row (in any
// document) that references it. Called on every contributing row change.
func GoalASIL(goalID uint64, docs []*HaraDoc) ASIL {
	levels := make([]ASIL, 0)
	for _, doc := range docs {
		for _, entry := range doc.Entries {
			if entry.SafetyGoalID == goalID {
				levels = append(levels, entry.ASIL)
			}
		}
	}
	return MaxOf(levels)
}
