package milp

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	gophersat "github.com/crillab/gophersat/solver"
)

// Time granted to the search to hand back its best model once it has been asked to stop
const stopGrace = 250 * time.Millisecond

type unsupportedModelError struct {
	reason string
}

func (err unsupportedModelError) Error() string {
	return fmt.Sprintf("model cannot be encoded as a pseudo-boolean problem: %v", err.reason)
}

type invalidAssignmentError struct{}

func (err invalidAssignmentError) Error() string {
	return "pseudo-boolean solver returned no assignment satisfying the model"
}

// pseudoBooleanSolver solves 0-1 (and bounded integer) linear programs in-process through gophersat's
// pseudo-boolean optimization engine. Integer variables are binary-expanded and coefficients must be integral
type pseudoBooleanSolver struct{}

func NewPseudoBooleanSolver() Solver {
	return &pseudoBooleanSolver{}
}

type bitKey struct {
	variable int
	bit      int
}

type pbRow struct {
	keys    []bitKey
	weights []int
	atLeast int
}

type pbEncoding struct {
	bitWeights  [][]int // Weight of each bit of each variable
	ids         map[bitKey]int
	constraints []gophersat.PBConstr
	costLits    []gophersat.Lit
	costWeights []int
	fixed       map[bitKey]bool // Value of bits that no constraint mentions
	infeasible  bool
}

func (solver *pseudoBooleanSolver) Solve(ctx context.Context, model *Model) (*Solution, error) {
	encoding, err := encodePseudoBoolean(model)
	if err != nil {
		return nil, err
	} else if encoding.infeasible {
		return nil, nil
	}

	// Nothing left to search for: every bit is fixed by the objective alone
	if len(encoding.constraints) == 0 {
		return encoding.decode(model, nil, true), nil
	}

	problem := gophersat.ParsePBConstrs(encoding.constraints)
	if len(encoding.costLits) > 0 {
		problem.SetCostFunc(encoding.costLits, encoding.costWeights)
	}
	satSolver := gophersat.New(problem)

	results := make(chan gophersat.Result)
	done := make(chan gophersat.Result, 1)
	stop := make(chan struct{})
	go func() {
		done <- satSolver.Optimal(results, stop)
	}()

	candidates := make([][]bool, 0) // Improving models reported along the search
	deadline := ctx.Done()
	var grace <-chan time.Time
	stopped := false

	for {
		select {
		case result, ok := <-results:
			if !ok {
				results = nil // Closed by the solver, stop selecting on it
				continue
			}
			if result.Status == gophersat.Sat {
				candidates = append(candidates, slices.Clone(result.Model))
			}
		case result := <-done:
			switch result.Status {
			case gophersat.Sat:
				return encoding.settle(model, result.Model, candidates, !stopped)
			case gophersat.Unsat:
				return nil, nil
			default:
				if solution := encoding.best(model, candidates); solution != nil {
					return solution, nil
				} else if stopped {
					return nil, ErrTimeout
				}
				return nil, fmt.Errorf("pseudo-boolean solver finished with an undetermined status")
			}
		case <-deadline:
			close(stop)
			stopped = true
			deadline = nil
			grace = time.After(stopGrace)
		case <-grace:
			// The search did not acknowledge the stop request in time. It cannot be interrupted any further, so it
			// keeps its goroutine (and CPU) until it returns on its own; the drain below only keeps it from blocking
			go func(results chan gophersat.Result) {
				for {
					select {
					case <-results:
					case <-done:
						return
					}
				}
			}(results)

			if solution := encoding.best(model, candidates); solution != nil {
				return solution, nil
			}
			return nil, ErrTimeout
		}
	}
}

// settle turns the final model of the search into a solution. The optimisation engine may hand back a model that
// breaks a row whose literals all carry a cost, so every model is checked against the MILP before being trusted:
// a broken final model falls back to the cheapest valid improving model, then to a plain satisfiability search
func (encoding *pbEncoding) settle(model *Model, final []bool, candidates [][]bool, optimal bool) (*Solution, error) {
	if solution := encoding.decode(model, final, optimal); Feasible(model, solution) {
		return solution, nil
	}
	if solution := encoding.best(model, candidates); solution != nil {
		return solution, nil
	}

	satSolver := gophersat.New(gophersat.ParsePBConstrs(encoding.constraints))
	switch satSolver.Solve() {
	case gophersat.Sat:
		if solution := encoding.decode(model, satSolver.Model(), false); Feasible(model, solution) {
			return solution, nil
		}
	case gophersat.Unsat:
		return nil, nil
	}
	return nil, invalidAssignmentError{}
}

// best returns the candidate with the best objective among those that satisfy the model, nil if there is none
func (encoding *pbEncoding) best(model *Model, candidates [][]bool) *Solution {
	var best *Solution
	for _, candidate := range candidates {
		solution := encoding.decode(model, candidate, false)
		if !Feasible(model, solution) {
			continue
		}
		if best == nil || better(model.Objective.Sense, solution.Objective, best.Objective) {
			best = solution
		}
	}
	return best
}

func better(sense Sense, value, than float64) bool {
	if sense == Maximize {
		return value > than
	}
	return value < than
}

func encodePseudoBoolean(model *Model) (*pbEncoding, error) {
	encoding := &pbEncoding{
		bitWeights: make([][]int, len(model.Variables)),
		ids:        make(map[bitKey]int),
		fixed:      make(map[bitKey]bool),
	}

	//** Expand variables into bits
	for i, variable := range model.Variables {
		if !variable.Integer {
			return nil, unsupportedModelError{fmt.Sprintf("variable \"%v\" is continuous", variable.Name)}
		} else if math.IsInf(variable.Lower, 0) || math.IsInf(variable.Upper, 0) {
			return nil, unsupportedModelError{fmt.Sprintf("variable \"%v\" is unbounded", variable.Name)}
		} else if !integral(variable.Lower) || !integral(variable.Upper) {
			return nil, unsupportedModelError{fmt.Sprintf("variable \"%v\" has fractional bounds", variable.Name)}
		} else if variable.Lower > variable.Upper {
			encoding.infeasible = true
			return encoding, nil
		}

		// Weights 1, 2, 4, ... capped by the remaining span, so that every value in [0, span] is reachable and none above it is
		span := int(variable.Upper - variable.Lower)
		weights := make([]int, 0)
		for covered, weight := 0, 1; covered < span; weight *= 2 {
			weight = min(weight, span-covered)
			weights = append(weights, weight)
			covered += weight
		}
		encoding.bitWeights[i] = weights
	}

	//** Expand constraints into pseudo-boolean rows
	rows := make([]pbRow, 0, len(model.Constraints))
	for _, constraint := range model.Constraints {
		keys, weights, constant, err := encoding.expand(model, constraint.Terms)
		if err != nil {
			return nil, fmt.Errorf("constraint \"%v\": %w", constraint.Name, err)
		}

		if constraint.Min != nil {
			bound := int(math.Ceil(*constraint.Min - constant - Tolerance))
			rows = append(rows, normalizeRow(keys, weights, bound))
		}
		if constraint.Max != nil {
			// sum <= bound  <=>  -sum >= -bound
			bound := int(math.Floor(*constraint.Max - constant + Tolerance))
			negated := make([]int, len(weights))
			for i, weight := range weights {
				negated[i] = -weight
			}
			rows = append(rows, normalizeRow(keys, negated, -bound))
		}
	}

	//** Drop trivially true rows, detect trivially false ones and number the bits that remain
	for _, row := range rows {
		if row.atLeast <= 0 {
			continue
		}
		total := 0
		for _, weight := range row.weights {
			total += weight
		}
		if row.atLeast > total {
			encoding.infeasible = true
			return encoding, nil
		}
		// A single literal never needs to weigh more than the bound
		for i, weight := range row.weights {
			row.weights[i] = min(weight, row.atLeast)
		}

		lits := make([]int, len(row.keys))
		for i, key := range row.keys {
			id, ok := encoding.ids[key.positive()]
			if !ok {
				id = len(encoding.ids) + 1
				encoding.ids[key.positive()] = id
			}
			if key.bit < 0 {
				lits[i] = -id
			} else {
				lits[i] = id
			}
		}
		encoding.constraints = append(encoding.constraints, gophersat.PBConstr{
			Lits:    lits,
			Weights: row.weights,
			AtLeast: row.atLeast,
		})
	}

	//** Objective
	sign := 1.0
	if model.Objective.Sense == Maximize {
		sign = -1.0
	}
	for _, term := range model.Objective.Terms {
		coefficient := sign * term.Coefficient
		if !integral(coefficient) {
			return nil, unsupportedModelError{fmt.Sprintf("objective coefficient %v of \"%v\" is not integral", term.Coefficient, model.Variables[term.Variable].Name)}
		}
		for bit, bitWeight := range encoding.bitWeights[term.Variable] {
			key := bitKey{term.Variable, bit}
			weight := int(coefficient) * bitWeight

			id, constrained := encoding.ids[key]
			if !constrained {
				// A free bit is set whenever doing so lowers the cost
				encoding.fixed[key] = encoding.fixed[key] || weight < 0
				continue
			}

			// w*b with w < 0 equals w + |w|*not(b)
			if weight < 0 {
				encoding.costLits = append(encoding.costLits, gophersat.IntToLit(int32(-id)))
				encoding.costWeights = append(encoding.costWeights, -weight)
			} else if weight > 0 {
				encoding.costLits = append(encoding.costLits, gophersat.IntToLit(int32(id)))
				encoding.costWeights = append(encoding.costWeights, weight)
			}
		}
	}

	return encoding, nil
}

// expand rewrites sum(coefficient*variable) as sum(weight*bit) + constant
func (encoding *pbEncoding) expand(model *Model, terms []Term) ([]bitKey, []int, float64, error) {
	keys, weights := make([]bitKey, 0, len(terms)), make([]int, 0, len(terms))
	constant := 0.0

	for _, term := range terms {
		if !integral(term.Coefficient) {
			return nil, nil, 0, unsupportedModelError{fmt.Sprintf("coefficient %v of \"%v\" is not integral", term.Coefficient, model.Variables[term.Variable].Name)}
		}
		constant += term.Coefficient * model.Variables[term.Variable].Lower
		for bit, bitWeight := range encoding.bitWeights[term.Variable] {
			keys = append(keys, bitKey{term.Variable, bit})
			weights = append(weights, int(term.Coefficient)*bitWeight)
		}
	}

	return keys, weights, constant, nil
}

// normalizeRow turns negative weights into positive weights over negated bits (w*b = w + |w|*not(b))
func normalizeRow(keys []bitKey, weights []int, atLeast int) pbRow {
	row := pbRow{
		keys:    make([]bitKey, 0, len(keys)),
		weights: make([]int, 0, len(weights)),
		atLeast: atLeast,
	}
	for i, weight := range weights {
		switch {
		case weight > 0:
			row.keys = append(row.keys, keys[i])
			row.weights = append(row.weights, weight)
		case weight < 0:
			row.keys = append(row.keys, keys[i].negated())
			row.weights = append(row.weights, -weight)
			row.atLeast -= weight
		}
	}
	return row
}

func (encoding *pbEncoding) decode(model *Model, satModel []bool, optimal bool) *Solution {
	values := make([]float64, len(model.Variables))
	for i, variable := range model.Variables {
		value := variable.Lower
		for bit, weight := range encoding.bitWeights[i] {
			key := bitKey{i, bit}
			set := encoding.fixed[key]
			if id, ok := encoding.ids[key]; ok && id-1 < len(satModel) {
				set = satModel[id-1]
			}
			if set {
				value += float64(weight)
			}
		}
		values[i] = value
	}

	return &Solution{
		Values:    values,
		Objective: model.Objective.Value(values),
		Optimal:   optimal,
	}
}

// Negated bits are stored with a one's-complement bit index so that keys stay comparable
func (key bitKey) negated() bitKey {
	return bitKey{key.variable, -key.bit - 1}
}

func (key bitKey) positive() bitKey {
	if key.bit < 0 {
		return key.negated()
	}
	return key
}

func integral(value float64) bool {
	return value == math.Trunc(value)
}
