// Package risk implements HAZOP and risk-assessment documents, ISO 26262
// ASIL resolution via the risk graph, SOTIF severity inheritance and the
// max-ASIL propagation onto safety goals.
package risk

import (
	"strings"
)

// ASIL is an Automotive Safety Integrity Level. Decomposed notations such as
// "B(D)" carry the original level in parentheses; ordering uses the base
// letter only.
type ASIL string

const (
	QM    ASIL = "QM"
	ASILA ASIL = "A"
	ASILB ASIL = "B"
	ASILC ASIL = "C"
	ASILD ASIL = "D"
)

// asilOrder ranks base ASIL levels: QM < A < B < C < D
var asilOrder = map[string]int{"QM": 0, "A": 1, "B": 2, "C": 3, "D": 4}

// Base strips decomposition notation: "B(D)" -> "B", "QM(C)" -> "QM"
func (a ASIL) Base() ASIL {
	s := string(a)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	return ASIL(strings.TrimSpace(s))
}

// Order returns the comparison rank of the base level; unknown levels rank
// as QM
func (a ASIL) Order() int {
	return asilOrder[string(a.Base())]
}

// Max returns the higher of two ASIL levels by base ordering
func Max(a, b ASIL) ASIL {
	if b.Order() > a.Order() {
		return b
	}
	return a
}

// MaxOf folds Max over a list; an empty list yields QM
func MaxOf(levels []ASIL) ASIL {
	result := QM
	for _, level := range levels {
		result = Max(result, level)
	}
	return result
}

// IsDecomposed reports whether the level carries decomposition notation
func (a ASIL) IsDecomposed() bool {
	return strings.ContainsRune(string(a), '(')
}
