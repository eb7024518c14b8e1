package review

import "fmt"

// BaselineName formats the canonical baseline label "v<N> - <label>". The
// sequence number is per model instance and auto-increments; the label is
// the human-chosen description supplied when a joint review closes.
func BaselineName(n int, label string) string {
	if label == "" {
		return fmt.Sprintf("v%d", n)
	}
	return fmt.Sprintf("v%d - %s", n, label)
}

// Baseline is one frozen model version: the canonical name and the snapshot
// taken when the joint review closed
type Baseline struct {
	Name     string    `yaml:"name"`
	Snapshot *Snapshot `yaml:"snapshot"`
}
