package risk

// SotifEntry is one row of a FI2TC or TC2FI analysis, linking a functional
// insufficiency to a triggering condition with an assessed severity. Risk
// assessment rows that reference an entry inherit its severity.
type SotifEntry struct {
	ID                      string `yaml:"id"`
	FunctionalInsufficiency string `yaml:"functional_insufficiency"`
	TriggeringCondition     string `yaml:"triggering_condition"`
	Scenario                string `yaml:"scenario,omitempty"`
	Severity                int    `yaml:"severity"`
	Mitigation              string `yaml:"mitigation,omitempty"`
	AcceptanceCriteria      string `yaml:"acceptance_criteria,omitempty"`
}

// SotifDoc holds FI2TC or TC2FI rows; Direction distinguishes the two
// document families.
type SotifDoc struct {
	Name      string        `yaml:"name"`
	Direction string        `yaml:"direction"` // "fi2tc" or "tc2fi"
	Entries   []*SotifEntry `yaml:"entries"`
}

// DocName implements repository.Document
func (d *SotifDoc) DocName() string { return d.Name }

// DocKind implements repository.Document
func (d *SotifDoc) DocKind() string { return d.Direction }

// SeverityFor implements SeverityLookup over the document's entries
func (d *SotifDoc) SeverityFor(ref string) (int, bool) {
	for _, entry := range d.Entries {
		if entry.ID == ref {
			return entry.Severity, true
		}
	}
	return 0, false
}

// MultiDocLookup folds several SOTIF documents into one SeverityLookup;
// the first document containing the reference wins.
type MultiDocLookup []*SotifDoc

// SeverityFor implements SeverityLookup
func (m MultiDocLookup) SeverityFor(ref string) (int, bool) {
	for _, doc := range m {
		if sev, ok := doc.SeverityFor(ref); ok {
			return sev, true
		}
	}
	return 0, false
}
