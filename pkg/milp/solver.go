package milp

import (
	"context"
	"errors"
	"math"
)

// Tolerance used when comparing assignments against bounds and integrality
const Tolerance = 1e-6

var ErrTimeout = errors.New("solver exceeded its time budget before finding a feasible assignment")

type Solver interface {
	// Returns a solution of the model if feasible, else returns nil (these are valid outputs where error shall be nil).
	// ErrTimeout is returned when ctx expires before any feasible assignment is known
	Solve(ctx context.Context, model *Model) (*Solution, error)
}

// Feasible checks that the solution respects every variable bound, integrality flag and constraint of the model
func Feasible(model *Model, solution *Solution) bool {
	if solution == nil || len(solution.Values) != len(model.Variables) {
		return false
	}

	for i, variable := range model.Variables {
		value := solution.Values[i]
		if value < variable.Lower-Tolerance || value > variable.Upper+Tolerance {
			return false
		}
		if variable.Integer && math.Abs(value-math.Round(value)) > Tolerance {
			return false
		}
	}

	for _, constraint := range model.Constraints {
		sum := 0.0
		for _, term := range constraint.Terms {
			sum += term.Coefficient * solution.Values[term.Variable]
		}
		if constraint.Min != nil && sum < *constraint.Min-Tolerance {
			return false
		}
		if constraint.Max != nil && sum > *constraint.Max+Tolerance {
			return false
		}
	}

	return true
}
