// Package cyber implements the threat/damage/attack-path model and
// Cybersecurity Assurance Level resolution per the ISO 21434 style matrices.
package cyber

// AttackPath is a single attack path description
type AttackPath struct {
	Description string `yaml:"description"`
}

// ThreatScenario is a threat organized by STRIDE category
type ThreatScenario struct {
	Stride      string       `yaml:"stride"` // e.g. "Spoofing", "Tampering"
	Scenario    string       `yaml:"scenario"`
	AttackPaths []AttackPath `yaml:"attack_paths,omitempty"`
}

// DamageScenario is a potential damage outcome for an asset function
type DamageScenario struct {
	Scenario string           `yaml:"scenario"`
	Type     string           `yaml:"type,omitempty"`
	Threats  []ThreatScenario `yaml:"threats,omitempty"`
}

// FunctionThreat links a function to its damage scenarios
type FunctionThreat struct {
	Name            string           `yaml:"name"`
	DamageScenarios []DamageScenario `yaml:"damage_scenarios,omitempty"`
}

// ThreatEntry is one row of a threat analysis table: an asset and the
// functions it exposes
type ThreatEntry struct {
	Asset     string           `yaml:"asset"`
	Functions []FunctionThreat `yaml:"functions,omitempty"`
}

// ThreatDoc is a threat analysis document
type ThreatDoc struct {
	Name    string         `yaml:"name"`
	Entries []*ThreatEntry `yaml:"entries"`
}

// DocName implements repository.Document
func (d *ThreatDoc) DocName() string { return d.Name }

// DocKind implements repository.Document
func (d *ThreatDoc) DocKind() string { return "threat" }
