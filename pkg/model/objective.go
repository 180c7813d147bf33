package model

import (
	"slices"

	"github.com/limaJavier/academicplan/pkg/milp"
	"github.com/samber/lo"
)

// objectiveTerms returns the minimisation objective: earliness per scheduled course, a fulfilment tie-break favouring
// courses that cover more outstanding requirements, the overflow penalty and the credit-band slacks
func objectiveTerms(state constraintState) []milp.Term {
	config := state.input.Config
	terms := make([]milp.Term, 0, state.indexer.Variables())

	outstanding := lo.Filter(state.input.Requirements, func(requirement Requirement, _ int) bool {
		return state.input.remaining(requirement) > 0
	})
	fulfilled := make(map[uint64]uint64, len(state.input.pending))
	for _, course := range state.input.pending {
		fulfilled[course] = uint64(lo.CountBy(outstanding, func(requirement Requirement) bool {
			return state.input.fulfills(course, requirement.Code)
		}))
	}
	maxFulfilled := lo.Max(lo.Values(fulfilled))

	for index := range state.indexer.Variables() {
		course, semester := state.indexer.Attributes(index)
		rank := uint64(slices.Index(state.input.horizon, semester) + 1)

		cost := config.EarlinessWeight*rank + config.FulfillmentBonus*(maxFulfilled-fulfilled[course])
		if cost > 0 {
			terms = append(terms, milp.Term{Variable: int(index), Coefficient: float64(cost)})
		}
	}

	if state.useOverflow >= 0 && config.OverflowPenalty > 0 {
		terms = append(terms, milp.Term{Variable: state.useOverflow, Coefficient: float64(config.OverflowPenalty)})
	}

	if config.BandPenalty > 0 {
		for _, semester := range state.input.horizon {
			if over, ok := state.over[semester]; ok {
				terms = append(terms, milp.Term{Variable: over, Coefficient: float64(config.BandPenalty)})
			}
			if under, ok := state.under[semester]; ok {
				terms = append(terms, milp.Term{Variable: under, Coefficient: float64(config.BandPenalty)})
			}
		}
	}

	return terms
}
