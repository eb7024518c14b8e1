// Package config holds the numeric policy tables the engines consume: FIT
// qualification multipliers, the ISO 26262 risk graph, the cybersecurity risk
// and CAL matrices, ASIL decomposition schemes and metric targets. Tables are
// plain data, constructible from YAML and validated before use, so a project
// can ship amended tables without code changes. Swapping tables on a live
// model must be followed by a full recompute of derived fields.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RiskGraphRow is one cell of the ISO 26262 risk graph
type RiskGraphRow struct {
	Severity        int    `yaml:"severity" validate:"required,min=1,max=3"`
	Controllability int    `yaml:"controllability" validate:"required,min=1,max=3"`
	Exposure        int    `yaml:"exposure" validate:"required,min=1,max=4"`
	ASIL            string `yaml:"asil" validate:"required,oneof=QM A B C D"`
}

// MetricTargets holds per-ASIL FMEDA metric targets
type MetricTargets struct {
	SPFM float64 `yaml:"spfm" validate:"min=0,max=1"`
	LPFM float64 `yaml:"lpfm" validate:"min=0,max=1"`
	DC   float64 `yaml:"dc" validate:"min=0,max=1"`
}

// DecompositionPair is one allowed ASIL pair for a decomposed requirement
type DecompositionPair struct {
	First  string `yaml:"first" validate:"required"`
	Second string `yaml:"second" validate:"required"`
}

// Tables bundles every lookup table the engines consume
type Tables struct {
	// QualificationFactors maps qualification certificates to multiplicative
	// FIT adjustment factors for passive components. Unmapped certificates
	// resolve to 1.0. Active components always use 1.0.
	QualificationFactors map[string]float64 `yaml:"qualification_factors" validate:"required,dive,gt=0"`

	// RiskGraph is the ISO 26262 ASIL determination table keyed by
	// (severity, controllability, exposure). Combinations not listed
	// resolve to QM.
	RiskGraph []RiskGraphRow `yaml:"risk_graph" validate:"required,min=1,dive"`

	// RiskLevelTable maps feasibility -> overall impact -> risk level
	RiskLevelTable map[string]map[string]string `yaml:"risk_level_table" validate:"required"`

	// CALTable maps attack-vector column -> overall impact -> CAL
	CALTable map[string]map[string]string `yaml:"cal_table" validate:"required"`

	// DecompositionSchemes maps a parent ASIL to its allowed child pairs
	DecompositionSchemes map[string][]DecompositionPair `yaml:"decomposition_schemes" validate:"required,dive,min=1,dive"`

	// ASILTargets holds the SPFM/LPFM/DC targets per ASIL
	ASILTargets map[string]MetricTargets `yaml:"asil_targets" validate:"required,dive"`

	// PMHFTargets holds per-ASIL probabilistic metric targets (per hour)
	PMHFTargets map[string]float64 `yaml:"pmhf_targets" validate:"required,dive,gt=0"`
}

var validate = validator.New()

// Validate checks the table contents against the struct constraints and
// rejects duplicate risk-graph cells.
func (t *Tables) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("table validation: %w", err)
	}
	seen := make(map[[3]int]struct{}, len(t.RiskGraph))
	for _, row := range t.RiskGraph {
		key := [3]int{row.Severity, row.Controllability, row.Exposure}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("table validation: duplicate risk graph cell S%d/C%d/E%d", row.Severity, row.Controllability, row.Exposure)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Parse decodes and validates tables from YAML
func Parse(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode tables: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// QualificationFactor resolves a certificate to its FIT multiplier
func (t *Tables) QualificationFactor(certificate string) float64 {
	if factor, ok := t.QualificationFactors[certificate]; ok {
		return factor
	}
	return 1.0
}

// LookupASIL resolves the risk graph for a severity/controllability/exposure
// triple. Unlisted combinations resolve to QM.
func (t *Tables) LookupASIL(severity, controllability, exposure int) string {
	for _, row := range t.RiskGraph {
		if row.Severity == severity && row.Controllability == controllability && row.Exposure == exposure {
			return row.ASIL
		}
	}
	return "QM"
}
