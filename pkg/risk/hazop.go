package risk

// HazopEntry is one row of a HAZOP study: a function, the guideword-derived
// malfunction, and the hazard assessment
type HazopEntry struct {
	Function    string `yaml:"function"`
	Malfunction string `yaml:"malfunction"`
	GuideWord   string `yaml:"guide_word"` // e.g. "No/Not", "More", "Less", "Reverse"
	Scenario    string `yaml:"scenario"`
	Conditions  string `yaml:"conditions"`
	Hazard      string `yaml:"hazard"`
	SafetyRelevant bool   `yaml:"safety_relevant"`
	Rationale   string `yaml:"rationale"`
	Covered     bool   `yaml:"covered"`
	CoveredBy   string `yaml:"covered_by,omitempty"`
	Component   string `yaml:"component,omitempty"`
}

// HazopDoc is a named HAZOP with an ordered entry list
type HazopDoc struct {
	Name    string        `yaml:"name"`
	Entries []*HazopEntry `yaml:"entries"`
}

// DocName implements repository.Document
func (d *HazopDoc) DocName() string { return d.Name }

// DocKind implements repository.Document
func (d *HazopDoc) DocKind() string { return "hazop" }

// FindMalfunction returns the first entry for a malfunction name, or nil
func (d *HazopDoc) FindMalfunction(malfunction string) *HazopEntry {
	for _, entry := range d.Entries {
		if entry.Malfunction == malfunction {
			return entry
		}
	}
	return nil
}

// Malfunctions returns the distinct malfunction names in entry order
func (d *HazopDoc) Malfunctions() []string {
	seen := make(map[string]struct{})
	names := make([]string, 0, len(d.Entries))
	for _, entry := range d.Entries {
		if _, dup := seen[entry.Malfunction]; dup {
			continue
		}
		seen[entry.Malfunction] = struct{}{}
		names = append(names, entry.Malfunction)
	}
	return names
}
