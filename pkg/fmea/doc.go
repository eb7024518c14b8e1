package fmea

import (
	"github.com/dd0wney/cluso-safety/pkg/config"
)

// Doc is an FMEA document: an ordered failure-mode table
type Doc struct {
	Name    string   `yaml:"name"`
	Entries []*Entry `yaml:"entries"`
}

// DocName implements repository.Document
func (d *Doc) DocName() string { return d.Name }

// DocKind implements repository.Document
func (d *Doc) DocKind() string { return "fmea" }

// ReferencesMalfunction reports whether any row references the malfunction
func (d *Doc) ReferencesMalfunction(malfunction string) bool {
	for _, entry := range d.Entries {
		if entry.Malfunction == malfunction {
			return true
		}
	}
	return false
}

// Metrics holds document-level FMEDA aggregates
type Metrics struct {
	TotalFIT float64 `yaml:"total_fit"`
	SPFM     float64 `yaml:"spfm"` // residual single-point FIT
	LPFM     float64 `yaml:"lpfm"` // residual latent FIT
	DC       float64 `yaml:"dc"`   // covered FIT / total FIT
}

// FmedaDoc is an FMEDA document: failure modes with diagnostics, plus the
// document-level metric aggregates recomputed by Aggregate.
type FmedaDoc struct {
	Name       string        `yaml:"name"`
	TargetASIL string        `yaml:"target_asil,omitempty"`
	Library    string        `yaml:"library,omitempty"`  // mechanism library name
	Analysis   string        `yaml:"analysis,omitempty"` // reliability analysis the metrics write back to
	Entries    []*FmedaEntry `yaml:"entries"`
	Metrics    Metrics       `yaml:"metrics"`
}

// DocName implements repository.Document
func (d *FmedaDoc) DocName() string { return d.Name }

// DocKind implements repository.Document
func (d *FmedaDoc) DocKind() string { return "fmeda" }

// ReferencesMalfunction reports whether any row references the malfunction
func (d *FmedaDoc) ReferencesMalfunction(malfunction string) bool {
	for _, entry := range d.Entries {
		if entry.Malfunction == malfunction {
			return true
		}
	}
	return false
}

// Aggregate recomputes the document metrics: SPFM and LPFM are sums of the
// per-row residual contributions, DC is the covered share of the total FIT.
func (d *FmedaDoc) Aggregate(lib *MechanismLibrary) Metrics {
	var total, covered, spfm, lpfm float64
	for _, entry := range d.Entries {
		share := entry.FITShare()
		total += share
		covered += share * entry.Coverage(lib)
		spfm += entry.SPFMContribution(lib)
		lpfm += entry.LPFMContribution(lib)
	}

	dc := 0.0
	if total > 0 {
		dc = covered / total
	}
	d.Metrics = Metrics{TotalFIT: total, SPFM: spfm, LPFM: lpfm, DC: dc}
	return d.Metrics
}

// MeetsTargets checks the aggregated metrics against the per-ASIL targets.
// The residual sums pass when the covered share of the relevant fault
// population reaches the target fraction.
func (d *FmedaDoc) MeetsTargets(lib *MechanismLibrary, tables *config.Tables) bool {
	targets, ok := tables.ASILTargets[d.TargetASIL]
	if !ok {
		return true
	}
	metrics := d.Aggregate(lib)

	var permanentFIT, transientFIT float64
	for _, entry := range d.Entries {
		switch entry.FaultType {
		case FaultPermanent:
			permanentFIT += entry.FITShare()
		case FaultTransient:
			transientFIT += entry.FITShare()
		}
	}

	if permanentFIT > 0 && 1-metrics.SPFM/permanentFIT < targets.SPFM {
		return false
	}
	if transientFIT > 0 && 1-metrics.LPFM/transientFIT < targets.LPFM {
		return false
	}
	return metrics.DC >= targets.DC || targets.DC == 0
}
