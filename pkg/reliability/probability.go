package reliability

import (
	"fmt"
	"math"
	"strings"
)

// Formula selects how a basic event converts its failure rate into a
// mission probability
type Formula string

const (
	// FormulaLinear computes p = lambda * tau
	FormulaLinear Formula = "linear"
	// FormulaExponential computes p = 1 - e^(-lambda * tau)
	FormulaExponential Formula = "exponential"
	// FormulaConstant reads the stored probability directly, ignoring
	// lambda and tau
	FormulaConstant Formula = "constant"
)

// ParseFormula normalizes a formula selector string. Unknown selectors fall
// back to linear, matching the tool's historical behavior.
func ParseFormula(s string) Formula {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exponential":
		return FormulaExponential
	case "constant":
		return FormulaConstant
	default:
		return FormulaLinear
	}
}

// hoursPerFIT converts FIT (failures per 10^9 hours) to failures per hour
const hoursPerFIT = 1e9

// Probability converts a FIT rate and mission time into a failure
// probability. fit is in FIT, tau in hours, stored is the direct probability
// used by the constant formula. The nonPhysical flag is set when the linear
// model yields lambda*tau > 1; the value is still returned (warning, not
// error).
func Probability(formula Formula, fit, tau, stored float64) (p float64, nonPhysical bool) {
	if formula == FormulaConstant {
		return stored, false
	}
	if fit <= 0 {
		return 0.0, false
	}
	if tau <= 0 {
		tau = 1.0
	}
	lambda := fit / hoursPerFIT

	switch formula {
	case FormulaExponential:
		return 1 - math.Exp(-lambda*tau), false
	default:
		p = lambda * tau
		return p, p > 1
	}
}

// Validate rejects unknown formula selectors up front, for callers that want
// strict input checking instead of the linear fallback
func (f Formula) Validate() error {
	switch f {
	case FormulaLinear, FormulaExponential, FormulaConstant:
		return nil
	default:
		return fmt.Errorf("unknown probability formula %q", string(f))
	}
}
