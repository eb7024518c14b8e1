package reliability

import (
	"github.com/dd0wney/cluso-safety/pkg/config"
)

// Component is one bill-of-materials line. BaseFIT is the unadjusted failure
// rate from the reliability standard; ComputeFIT applies the qualification
// multiplier and quantity. SubBOMs let a component carry a nested BOM whose
// contributions multiply by the parent quantity.
type Component struct {
	Name          string            `yaml:"name"`
	Type          string            `yaml:"type"`
	Quantity      int               `yaml:"quantity"`
	Qualification string            `yaml:"qualification,omitempty"`
	BaseFIT       float64           `yaml:"base_fit"`
	Passive       bool              `yaml:"passive,omitempty"`
	Attributes    map[string]string `yaml:"attributes,omitempty"`
	SubBOMs       [][]*Component    `yaml:"sub_boms,omitempty"`
}

// ComputeFIT returns the component's failure rate contribution:
// base rate x qualification multiplier x quantity. Only passive components
// take a qualification discount; active ones always use a factor of 1.0.
// An unmapped certificate also resolves to 1.0.
func ComputeFIT(comp *Component, tables *config.Tables) float64 {
	qty := comp.Quantity
	if qty <= 0 {
		qty = 1
	}
	factor := 1.0
	if comp.Passive {
		factor = tables.QualificationFactor(comp.Qualification)
	}
	return comp.BaseFIT * factor * float64(qty)
}

// FITMap flattens a component list into name -> aggregated FIT, recursing
// into sub-BOMs with the parent quantity multiplying the children.
func FITMap(components []*Component, tables *config.Tables) map[string]float64 {
	mapping := make(map[string]float64)

	var add func(comp *Component, mult float64)
	add = func(comp *Component, mult float64) {
		qty := comp.Quantity
		if qty <= 0 {
			qty = 1
		}
		mapping[comp.Name] += ComputeFIT(comp, tables) * mult
		for _, bom := range comp.SubBOMs {
			for _, sub := range bom {
				add(sub, mult*float64(qty))
			}
		}
	}

	for _, comp := range components {
		add(comp, 1.0)
	}
	return mapping
}

// Analysis stores a reliability calculation: the BOM, the profile it was run
// against, and the resulting totals. SPFM/LPFM/DC are copied over from the
// FMEDA engine on recompute.
type Analysis struct {
	Name       string       `yaml:"name"`
	Standard   string       `yaml:"standard"`
	Profile    string       `yaml:"profile"`
	Components []*Component `yaml:"components"`
	TotalFIT   float64      `yaml:"total_fit"`
	SPFM       float64      `yaml:"spfm"`
	LPFM       float64      `yaml:"lpfm"`
	DC         float64      `yaml:"dc"`
}

// DocName implements repository.Document
func (a *Analysis) DocName() string { return a.Name }

// DocKind implements repository.Document
func (a *Analysis) DocKind() string { return "reliability" }

// Aggregate recomputes and stores the document total FIT
func (a *Analysis) Aggregate(tables *config.Tables) float64 {
	total := 0.0
	for _, fit := range FITMap(a.Components, tables) {
		total += fit
	}
	a.TotalFIT = total
	return total
}

// ComponentFIT returns the aggregated FIT for one component name, including
// sub-BOM contributions
func (a *Analysis) ComponentFIT(name string, tables *config.Tables) float64 {
	return FITMap(a.Components, tables)[name]
}
