package cyber

import (
	"github.com/dd0wney/cluso-safety/pkg/config"
)

// Impact severity levels, weakest first. Overall impact is driven by the
// worst-case category, not an average (documented policy).
const (
	ImpactNegligible = "Negligible"
	ImpactModerate   = "Moderate"
	ImpactMajor      = "Major"
	ImpactSevere     = "Severe"
)

// impactOrder ranks impact levels for the worst-case fold
var impactOrder = map[string]int{
	ImpactNegligible: 0,
	ImpactModerate:   1,
	ImpactMajor:      2,
	ImpactSevere:     3,
}

// CAL is a Cybersecurity Assurance Level (CAL1..CAL4)
type CAL string

// calOrder ranks CAL levels; the zero value ranks below CAL1
var calOrder = map[CAL]int{"CAL1": 1, "CAL2": 2, "CAL3": 3, "CAL4": 4}

// Order returns the comparison rank of a CAL
func (c CAL) Order() int { return calOrder[c] }

// MaxCAL returns the higher of two CALs
func MaxCAL(a, b CAL) CAL {
	if b.Order() > a.Order() {
		return b
	}
	return a
}

// RiskEntry is one cybersecurity risk-assessment row. OverallImpact,
// RiskLevel and CALValue are derived on Resolve and never entered directly.
type RiskEntry struct {
	DamageScenario    string   `yaml:"damage_scenario"`
	ThreatScenario    string   `yaml:"threat_scenario"`
	AttackVector      string   `yaml:"attack_vector"` // Physical, Local, Adjacent, Network...
	Feasibility       string   `yaml:"feasibility"`   // Low, Medium, High
	FinancialImpact   string   `yaml:"financial_impact"`
	SafetyImpact      string   `yaml:"safety_impact"`
	OperationalImpact string   `yaml:"operational_impact"`
	PrivacyImpact     string   `yaml:"privacy_impact"`
	GoalID            uint64   `yaml:"goal_id,omitempty"` // element ID of the linked CybersecurityGoal
	AttackPaths       []string `yaml:"attack_paths,omitempty"`

	OverallImpact string `yaml:"overall_impact"`
	RiskLevel     string `yaml:"risk_level"`
	CALValue      CAL    `yaml:"cal"`
}

// vectorColumn maps an attack vector onto its CAL table column
func vectorColumn(vector string) string {
	switch vector {
	case "Physical", "Local":
		return "Physical-Local"
	case "Adjacent":
		return "Adjacent Network"
	default:
		return "Network-Remote"
	}
}

// Resolve recomputes the row's derived fields: overall impact is the maximum
// across the four impact categories, risk level comes from the feasibility x
// impact matrix, and the CAL from the attack-vector x impact matrix.
func (e *RiskEntry) Resolve(tables *config.Tables) {
	e.OverallImpact = e.computeOverallImpact()
	e.RiskLevel = tables.RiskLevelTable[e.Feasibility][e.OverallImpact]
	e.CALValue = CAL(tables.CALTable[vectorColumn(e.AttackVector)][e.OverallImpact])
}

// computeOverallImpact returns the worst impact among all categories
func (e *RiskEntry) computeOverallImpact() string {
	impacts := []string{e.FinancialImpact, e.SafetyImpact, e.OperationalImpact, e.PrivacyImpact}
	worst := ImpactNegligible
	for _, impact := range impacts {
		if impactOrder[impact] > impactOrder[worst] {
			worst = impact
		}
	}
	return worst
}

// RiskDoc is an ordered cybersecurity risk assessment document
type RiskDoc struct {
	Name    string       `yaml:"name"`
	Entries []*RiskEntry `yaml:"entries"`
}

// DocName implements repository.Document
func (d *RiskDoc) DocName() string { return d.Name }

// DocKind implements repository.Document
func (d *RiskDoc) DocKind() string { return "cyber_risk" }

// Resolve recomputes every row
func (d *RiskDoc) Resolve(tables *config.Tables) {
	for _, entry := range d.Entries {
		entry.Resolve(tables)
	}
}

// GoalCAL computes a cybersecurity goal's CAL: the maximum over every row
// (in any document) linked to it, mirroring the safety-goal ASIL rule.
// Recomputed on every contributing row change.
func GoalCAL(goalID uint64, docs []*RiskDoc) CAL {
	result := CAL("")
	for _, doc := range docs {
		for _, entry := range doc.Entries {
			if entry.GoalID == goalID {
				result = MaxCAL(result, entry.CALValue)
			}
		}
	}
	if result == "" {
		return "CAL1"
	}
	return result
}
