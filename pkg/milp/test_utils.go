package milp

import (
	"fmt"
	"math/rand/v2"
)

// GenerateKnapsackModel builds a random multi-dimensional 0-1 knapsack: maximize sum(value*x) subject to
// `constraints` packing rows. The all-zero assignment is always feasible
func GenerateKnapsackModel(variables, constraints int) *Model {
	model := NewModel()
	for i := range variables {
		model.AddVariable(Binary(fmt.Sprintf("item_%d", i)))
	}

	for i := range constraints {
		terms := make([]Term, 0, variables)
		total := 0
		for j := range variables {
			if rand.Float32() < 0.5 {
				weight := rand.IntN(5) + 1
				terms = append(terms, Term{Variable: j, Coefficient: float64(weight)})
				total += weight
			}
		}
		capacity := float64(total / 2)
		model.AddConstraint(Constraint{
			Name:  fmt.Sprintf("capacity_%d", i),
			Terms: terms,
			Max:   &capacity,
		})
	}

	objective := make([]Term, variables)
	for j := range variables {
		objective[j] = Term{Variable: j, Coefficient: float64(rand.IntN(10) + 1)}
	}
	model.SetObjective(Maximize, objective)

	return model
}
