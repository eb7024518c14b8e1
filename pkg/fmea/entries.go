package fmea

// FaultType distinguishes single-point from latent fault contributions
type FaultType string

const (
	// FaultPermanent faults contribute to the single-point fault metric
	FaultPermanent FaultType = "permanent"
	// FaultTransient faults contribute to the latent-point fault metric
	FaultTransient FaultType = "transient"
)

// Entry is one FMEA row. Severity, occurrence and detection use the
// conventional 1-10 scales; RPN is their product.
type Entry struct {
	Malfunction string `yaml:"malfunction"`
	Component   string `yaml:"component,omitempty"`
	FailureMode string `yaml:"failure_mode"`
	Cause       string `yaml:"cause"`
	Effect      string `yaml:"effect"`
	Severity    int    `yaml:"severity"`
	Occurrence  int    `yaml:"occurrence"`
	Detection   int    `yaml:"detection"`
}

// RPN returns the risk priority number severity x occurrence x detection
func (e *Entry) RPN() int {
	return e.Severity * e.Occurrence * e.Detection
}

// FmedaEntry extends an FMEA row with the diagnostic fields: the fault type,
// the share of the component FIT attributed to this mode, and the diagnostic
// coverage applied against it.
type FmedaEntry struct {
	Entry `yaml:",inline"`

	FaultType     FaultType `yaml:"fault_type"`
	ComponentFIT  float64   `yaml:"component_fit"`  // FIT of the owning component
	FaultFraction float64   `yaml:"fault_fraction"` // share of the component FIT in this mode, 0..1

	// Mechanism names the DiagnosticMechanism whose declared coverage is
	// the default; CoverageOverride, when non-nil, wins over it
	Mechanism        string   `yaml:"mechanism,omitempty"`
	CoverageOverride *float64 `yaml:"coverage_override,omitempty"`
}

// FITShare returns the per-mode FIT: component FIT x fault fraction
func (e *FmedaEntry) FITShare() float64 {
	return e.ComponentFIT * e.FaultFraction
}

// Coverage resolves the diagnostic coverage for the row: the per-row
// override when present, else the referenced mechanism's declared coverage,
// else zero
func (e *FmedaEntry) Coverage(lib *MechanismLibrary) float64 {
	if e.CoverageOverride != nil {
		return *e.CoverageOverride
	}
	if lib != nil && e.Mechanism != "" {
		if m := lib.Find(e.Mechanism); m != nil {
			return m.Coverage
		}
	}
	return 0.0
}

// SPFMContribution returns the single-point residual fit x (1 - coverage);
// only permanent faults contribute
func (e *FmedaEntry) SPFMContribution(lib *MechanismLibrary) float64 {
	if e.FaultType != FaultPermanent {
		return 0.0
	}
	return e.FITShare() * (1 - e.Coverage(lib))
}

// LPFMContribution returns the latent residual fit x (1 - coverage);
// only transient faults contribute
func (e *FmedaEntry) LPFMContribution(lib *MechanismLibrary) float64 {
	if e.FaultType != FaultTransient {
		return 0.0
	}
	return e.FITShare() * (1 - e.Coverage(lib))
}
