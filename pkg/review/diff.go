package review

import (
	"sort"
	"strings"
)

// ElementRecord is the diffable view of one model element: identity plus a
// flat field map. Field values are rendered to strings by the caller so the
// diff stays independent of the repository's value encoding.
type ElementRecord struct {
	ID     uint64            `yaml:"id"`
	Kind   string            `yaml:"kind"`
	Name   string            `yaml:"name"`
	Fields map[string]string `yaml:"fields,omitempty"`
}

// ConnectionRecord is the diffable view of one relationship
type ConnectionRecord struct {
	ID         uint64 `yaml:"id"`
	Stereotype string `yaml:"stereotype"`
	FromID     uint64 `yaml:"from_id"`
	ToID       uint64 `yaml:"to_id"`
}

// Snapshot is the frozen model view baselines and diffs operate on
type Snapshot struct {
	Elements    []ElementRecord    `yaml:"elements"`
	Connections []ConnectionRecord `yaml:"connections"`
}

// SpanKind classifies one run of a field-level text diff
type SpanKind string

const (
	SpanEqual    SpanKind = "equal"
	SpanDeleted  SpanKind = "deleted"
	SpanInserted SpanKind = "inserted"
)

// Span is one run of words shared, deleted or inserted between versions
type Span struct {
	Kind SpanKind
	Text string
}

// FieldChange describes one changed field of an element present in both
// snapshots, as word-level spans
type FieldChange struct {
	ElementID uint64
	Field     string
	Spans     []Span
}

// Diff is the comparison of two snapshots. It is produced by Compare as a
// pure function; neither input is modified.
type Diff struct {
	AddedElements      []ElementRecord
	RemovedElements    []ElementRecord
	AddedConnections   []ConnectionRecord
	RemovedConnections []ConnectionRecord
	FieldChanges       []FieldChange
}

// Empty reports whether the two snapshots were identical
func (d *Diff) Empty() bool {
	return len(d.AddedElements) == 0 && len(d.RemovedElements) == 0 &&
		len(d.AddedConnections) == 0 && len(d.RemovedConnections) == 0 &&
		len(d.FieldChanges) == 0
}

// Compare diffs two snapshots by element and connection ID. Elements present
// in both are compared field by field; changed text fields get word-level
// spans. Results are ordered by ID for a deterministic report.
func Compare(old, new *Snapshot) *Diff {
	diff := &Diff{}

	oldElems := make(map[uint64]ElementRecord, len(old.Elements))
	for _, e := range old.Elements {
		oldElems[e.ID] = e
	}
	newElems := make(map[uint64]ElementRecord, len(new.Elements))
	for _, e := range new.Elements {
		newElems[e.ID] = e
	}

	for _, e := range new.Elements {
		prev, existed := oldElems[e.ID]
		if !existed {
			diff.AddedElements = append(diff.AddedElements, e)
			continue
		}
		diff.FieldChanges = append(diff.FieldChanges, fieldChanges(prev, e)...)
	}
	for _, e := range old.Elements {
		if _, survives := newElems[e.ID]; !survives {
			diff.RemovedElements = append(diff.RemovedElements, e)
		}
	}

	oldConns := make(map[uint64]struct{}, len(old.Connections))
	for _, c := range old.Connections {
		oldConns[c.ID] = struct{}{}
	}
	newConns := make(map[uint64]struct{}, len(new.Connections))
	for _, c := range new.Connections {
		newConns[c.ID] = struct{}{}
	}
	for _, c := range new.Connections {
		if _, existed := oldConns[c.ID]; !existed {
			diff.AddedConnections = append(diff.AddedConnections, c)
		}
	}
	for _, c := range old.Connections {
		if _, survives := newConns[c.ID]; !survives {
			diff.RemovedConnections = append(diff.RemovedConnections, c)
		}
	}

	sort.Slice(diff.AddedElements, func(i, j int) bool { return diff.AddedElements[i].ID < diff.AddedElements[j].ID })
	sort.Slice(diff.RemovedElements, func(i, j int) bool { return diff.RemovedElements[i].ID < diff.RemovedElements[j].ID })
	sort.Slice(diff.AddedConnections, func(i, j int) bool { return diff.AddedConnections[i].ID < diff.AddedConnections[j].ID })
	sort.Slice(diff.RemovedConnections, func(i, j int) bool { return diff.RemovedConnections[i].ID < diff.RemovedConnections[j].ID })

	return diff
}

// fieldChanges compares every field of an element across versions, treating
// the name as the "name" field
func fieldChanges(old, new ElementRecord) []FieldChange {
	var changes []FieldChange

	if old.Name != new.Name {
		changes = append(changes, FieldChange{
			ElementID: new.ID,
			Field:     "name",
			Spans:     DiffText(old.Name, new.Name),
		})
	}

	fields := make(map[string]struct{}, len(old.Fields)+len(new.Fields))
	for f := range old.Fields {
		fields[f] = struct{}{}
	}
	for f := range new.Fields {
		fields[f] = struct{}{}
	}
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)

	for _, f := range names {
		before, after := old.Fields[f], new.Fields[f]
		if before == after {
			continue
		}
		changes = append(changes, FieldChange{
			ElementID: new.ID,
			Field:     f,
			Spans:     DiffText(before, after),
		})
	}
	return changes
}

// DiffText produces word-level spans between two texts using a longest
// common subsequence. Adjacent words of the same kind collapse into a
// single span.
func DiffText(old, new string) []Span {
	a := strings.Fields(old)
	b := strings.Fields(new)

	// LCS length table
	lcs := make([][]int, len(a)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var spans []Span
	appendWord := func(kind SpanKind, word string) {
		if n := len(spans); n > 0 && spans[n-1].Kind == kind {
			spans[n-1].Text += " " + word
			return
		}
		spans = append(spans, Span{Kind: kind, Text: word})
	}

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			appendWord(SpanEqual, a[i])
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			appendWord(SpanDeleted, a[i])
			i++
		default:
			appendWord(SpanInserted, b[j])
			j++
		}
	}
	for ; i < len(a); i++ {
		appendWord(SpanDeleted, a[i])
	}
	for ; j < len(b); j++ {
		appendWord(SpanInserted, b[j])
	}
	return spans
}
