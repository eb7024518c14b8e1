// Package fmea implements failure-mode tables (FMEA) and their diagnostic
// extension (FMEDA): per-row FIT shares, diagnostic coverage defaulting and
// document-level SPFM/LPFM/DC aggregation.
package fmea

// DiagnosticMechanism is a safety mechanism with a declared diagnostic
// coverage, such as those from ISO 26262 Annex D
type DiagnosticMechanism struct {
	Name        string  `yaml:"name"`
	Coverage    float64 `yaml:"coverage"` // 0..1
	Description string  `yaml:"description,omitempty"`
	Detail      string  `yaml:"detail,omitempty"`
	Requirement string  `yaml:"requirement,omitempty"`
}

// MechanismLibrary is a named collection of diagnostic mechanisms
type MechanismLibrary struct {
	Name       string                 `yaml:"name"`
	Mechanisms []*DiagnosticMechanism `yaml:"mechanisms"`
}

// Find returns the mechanism with the given name, or nil
func (l *MechanismLibrary) Find(name string) *DiagnosticMechanism {
	for _, m := range l.Mechanisms {
		if m.Name == name {
			return m
		}
	}
	return nil
}
