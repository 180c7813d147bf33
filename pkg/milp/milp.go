package milp

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

type Sense int

const (
	Minimize Sense = iota
	Maximize
)

type Variable struct {
	Name    string
	Lower   float64
	Upper   float64
	Integer bool
}

// Binary returns a 0-1 integer variable
func Binary(name string) Variable {
	return Variable{Name: name, Lower: 0, Upper: 1, Integer: true}
}

// Bounded returns an integer variable ranging over [lower, upper]
func Bounded(name string, lower, upper float64) Variable {
	return Variable{Name: name, Lower: lower, Upper: upper, Integer: true}
}

type Term struct {
	Variable    int
	Coefficient float64
}

// A Constraint holds Min <= sum(Terms) <= Max, where a nil bound is absent
type Constraint struct {
	Name  string
	Terms []Term
	Min   *float64
	Max   *float64
}

type Objective struct {
	Sense Sense
	Terms []Term
}

type Model struct {
	Variables   []Variable
	Constraints []Constraint
	Objective   Objective

	index map[string]int
}

type Solution struct {
	Values    []float64
	Objective float64
	Optimal   bool // False when the search was interrupted before optimality was proven
}

func NewModel() *Model {
	return &Model{index: make(map[string]int)}
}

// AddVariable registers the variable and returns its index. Names must be unique
func (model *Model) AddVariable(variable Variable) int {
	if _, ok := model.index[variable.Name]; ok {
		panic(fmt.Sprintf("variable \"%v\" is already present in the model", variable.Name))
	}
	index := len(model.Variables)
	model.Variables = append(model.Variables, variable)
	model.index[variable.Name] = index
	return index
}

func (model *Model) Lookup(name string) (int, bool) {
	index, ok := model.index[name]
	return index, ok
}

// AddConstraint merges repeated variables and drops null coefficients before storing the constraint
func (model *Model) AddConstraint(constraint Constraint) {
	constraint.Terms = mergeTerms(constraint.Terms)
	model.Constraints = append(model.Constraints, constraint)
}

func (model *Model) SetObjective(sense Sense, terms []Term) {
	model.Objective = Objective{Sense: sense, Terms: mergeTerms(terms)}
}

// Value evaluates the objective function for the given assignment
func (objective Objective) Value(values []float64) float64 {
	value := 0.0
	for _, term := range objective.Terms {
		value += term.Coefficient * values[term.Variable]
	}
	return value
}

func (solution *Solution) Value(model *Model, name string) (float64, bool) {
	index, ok := model.Lookup(name)
	if !ok {
		return 0, false
	}
	return solution.Values[index], true
}

// ToLP writes the model in CPLEX-LP format. Variables and constraints are renamed after their indices (x<i>, c<i>)
// since identifiers in the model may contain characters the format does not accept
func (model *Model) ToLP() string {
	var builder strings.Builder

	//** Objective
	if model.Objective.Sense == Maximize {
		builder.WriteString("Maximize\n")
	} else {
		builder.WriteString("Minimize\n")
	}
	builder.WriteString(" obj:")
	if len(model.Objective.Terms) == 0 && len(model.Variables) > 0 {
		builder.WriteString(" 0 x0")
	}
	writeTerms(&builder, model.Objective.Terms)
	builder.WriteString("\n")

	//** Constraints
	builder.WriteString("Subject To\n")
	for i, constraint := range model.Constraints {
		if len(constraint.Terms) == 0 {
			if len(model.Variables) == 0 {
				continue
			}
			// Keep empty rows so that violated constant bounds still make the model infeasible
			constraint.Terms = []Term{{Variable: 0, Coefficient: 0}}
		}

		switch {
		case constraint.Min != nil && constraint.Max != nil && *constraint.Min == *constraint.Max:
			writeRow(&builder, fmt.Sprintf("c%d", i), constraint.Terms, "=", *constraint.Min)
		case constraint.Min != nil && constraint.Max != nil:
			writeRow(&builder, fmt.Sprintf("c%d_lo", i), constraint.Terms, ">=", *constraint.Min)
			writeRow(&builder, fmt.Sprintf("c%d_hi", i), constraint.Terms, "<=", *constraint.Max)
		case constraint.Min != nil:
			writeRow(&builder, fmt.Sprintf("c%d", i), constraint.Terms, ">=", *constraint.Min)
		case constraint.Max != nil:
			writeRow(&builder, fmt.Sprintf("c%d", i), constraint.Terms, "<=", *constraint.Max)
		}
	}

	//** Bounds
	builder.WriteString("Bounds\n")
	for i, variable := range model.Variables {
		fmt.Fprintf(&builder, " %v <= x%d <= %v\n", formatBound(variable.Lower), i, formatBound(variable.Upper))
	}

	//** Integrality
	binaries, generals := make([]string, 0), make([]string, 0)
	for i, variable := range model.Variables {
		if !variable.Integer {
			continue
		}
		if variable.Lower == 0 && variable.Upper == 1 {
			binaries = append(binaries, fmt.Sprintf("x%d", i))
		} else {
			generals = append(generals, fmt.Sprintf("x%d", i))
		}
	}
	if len(binaries) > 0 {
		fmt.Fprintf(&builder, "Binaries\n %v\n", strings.Join(binaries, " "))
	}
	if len(generals) > 0 {
		fmt.Fprintf(&builder, "Generals\n %v\n", strings.Join(generals, " "))
	}

	builder.WriteString("End\n")
	return builder.String()
}

func writeRow(builder *strings.Builder, name string, terms []Term, operator string, bound float64) {
	fmt.Fprintf(builder, " %v:", name)
	writeTerms(builder, terms)
	fmt.Fprintf(builder, " %v %v\n", operator, formatNumber(bound))
}

func writeTerms(builder *strings.Builder, terms []Term) {
	for i, term := range terms {
		coefficient := term.Coefficient
		sign := "+"
		if coefficient < 0 {
			sign = "-"
			coefficient = -coefficient
		}
		if i == 0 && sign == "+" {
			fmt.Fprintf(builder, " %v x%d", formatNumber(coefficient), term.Variable)
		} else {
			fmt.Fprintf(builder, " %v %v x%d", sign, formatNumber(coefficient), term.Variable)
		}
	}
}

func formatBound(bound float64) string {
	if math.IsInf(bound, 1) {
		return "+inf"
	} else if math.IsInf(bound, -1) {
		return "-inf"
	}
	return formatNumber(bound)
}

func formatNumber(value float64) string {
	return fmt.Sprintf("%g", value)
}

func mergeTerms(terms []Term) []Term {
	coefficients := make(map[int]float64, len(terms))
	order := make([]int, 0, len(terms))
	for _, term := range terms {
		if _, ok := coefficients[term.Variable]; !ok {
			order = append(order, term.Variable)
		}
		coefficients[term.Variable] += term.Coefficient
	}

	merged := make([]Term, 0, len(order))
	for _, variable := range order {
		if coefficients[variable] != 0 {
			merged = append(merged, Term{Variable: variable, Coefficient: coefficients[variable]})
		}
	}
	return slices.Clip(merged)
}
