package model

import (
	"fmt"
	"slices"

	"github.com/limaJavier/academicplan/pkg/milp"
	"github.com/samber/lo"
)

type constraintState struct {
	input    ModelInput
	indexer  indexer
	families []Family

	active      map[uint64]int // Per semester: 1 iff at least one course is scheduled in it
	over        map[uint64]int // Per semester: credits above the preferred band
	under       map[uint64]int // Per semester: credits below the preferred band
	useOverflow int            // -1 when the model has no overflow indicator
}

var constraintFamilies = map[Family]func(state constraintState) []milp.Constraint{
	FamilyRequirements:     requirementConstraints,
	FamilyPrerequisites:    prerequisiteConstraints,
	FamilyCreditLoad:       creditLoadConstraints,
	FamilyCreditBand:       creditBandConstraints,
	FamilySingleAssignment: singleAssignmentConstraints,
	FamilyOverflowLinkage:  overflowLinkageConstraints,
}

func (state constraintState) enabled(family Family) bool {
	return slices.Contains(state.families, family)
}

// sum_{c fulfills R, s} x[c,s] >= remaining(R)
func requirementConstraints(state constraintState) []milp.Constraint {
	constraints := make([]milp.Constraint, 0, len(state.input.Requirements))

	for _, requirement := range state.input.Requirements {
		remaining := state.input.remaining(requirement)
		if remaining == 0 {
			continue
		}

		terms := make([]milp.Term, 0)
		for _, course := range state.input.pending {
			if !state.input.fulfills(course, requirement.Code) {
				continue
			}
			for _, semester := range state.input.horizon {
				if index, ok := state.indexer.Index(course, semester); ok {
					terms = append(terms, milp.Term{Variable: int(index), Coefficient: 1})
				}
			}
		}

		constraints = append(constraints, milp.Constraint{
			Name:  fmt.Sprintf("requirement[%v]", requirement.Code),
			Terms: terms,
			Min:   lo.ToPtr(float64(remaining)),
		})
	}

	return constraints
}

// x[c,s] - sum_{t<s, a in G} x[a,t] <= 0 for every prerequisite group G of c, unless G holds a completed course
func prerequisiteConstraints(state constraintState) []milp.Constraint {
	constraints := make([]milp.Constraint, 0)

	for _, course := range state.input.pending {
		for g, group := range state.input.Catalog[course].Prerequisites {
			// A completed alternative satisfies the group before the horizon starts
			if lo.SomeBy(group, state.input.isCompleted) {
				continue
			}

			// Unresolvable alternatives are dropped; a group left empty is dropped as well (reported as dangling)
			alternatives := lo.Map(lo.Filter(group, func(id string, _ int) bool { return state.input.isPending(id) }), func(id string, _ int) uint64 {
				return state.input.courses[id]
			})
			if len(alternatives) == 0 {
				continue
			}

			for _, semester := range state.input.horizon {
				index, ok := state.indexer.Index(course, semester)
				if !ok {
					continue
				}

				terms := []milp.Term{{Variable: int(index), Coefficient: 1}}
				for _, alternative := range alternatives {
					for _, earlier := range state.input.horizon {
						if earlier >= semester {
							break
						}
						if alternativeIndex, ok := state.indexer.Index(alternative, earlier); ok {
							terms = append(terms, milp.Term{Variable: int(alternativeIndex), Coefficient: -1})
						}
					}
				}

				constraints = append(constraints, milp.Constraint{
					Name:  fmt.Sprintf("prerequisite[%v,%d,%v]", state.input.Catalog[course].Id, g, semester),
					Terms: terms,
					Max:   lo.ToPtr(0.0),
				})
			}
		}
	}

	return constraints
}

// min*active[s] <= sum credits(c)*x[c,s] <= max*active[s]; the overflow semester is exempt from the minimum
func creditLoadConstraints(state constraintState) []milp.Constraint {
	config := state.input.Config
	constraints := make([]milp.Constraint, 0, 2*len(state.input.horizon))

	for _, semester := range state.input.horizon {
		terms := creditTerms(state, semester)
		active := state.active[semester]

		constraints = append(constraints, milp.Constraint{
			Name:  fmt.Sprintf("maxCredits[%v]", semester),
			Terms: append(slices.Clone(terms), milp.Term{Variable: active, Coefficient: -float64(config.MaxCreditsPerSemester)}),
			Max:   lo.ToPtr(0.0),
		})

		if state.input.isOverflow(semester) {
			continue
		}
		constraints = append(constraints, milp.Constraint{
			Name:  fmt.Sprintf("minCredits[%v]", semester),
			Terms: append(slices.Clone(terms), milp.Term{Variable: active, Coefficient: -float64(config.MinCreditsPerSemester)}),
			Min:   lo.ToPtr(0.0),
		})
	}

	return constraints
}

// sum credits - over[s] <= high and sum credits + under[s] >= low*active[s]
func creditBandConstraints(state constraintState) []milp.Constraint {
	if len(state.over) == 0 {
		return nil
	}

	low, high := state.input.Config.PreferredCreditBand[0], state.input.Config.PreferredCreditBand[1]
	constraints := make([]milp.Constraint, 0, 3*len(state.input.horizon))

	for _, semester := range state.input.horizon {
		terms := creditTerms(state, semester)
		active := state.active[semester]

		constraints = append(constraints,
			milp.Constraint{
				Name:  fmt.Sprintf("overBand[%v]", semester),
				Terms: append(slices.Clone(terms), milp.Term{Variable: state.over[semester], Coefficient: -1}),
				Max:   lo.ToPtr(float64(high)),
			},
			milp.Constraint{
				Name:  fmt.Sprintf("underBand[%v]", semester),
				Terms: append(slices.Clone(terms), milp.Term{Variable: state.under[semester], Coefficient: 1}, milp.Term{Variable: active, Coefficient: -float64(low)}),
				Min:   lo.ToPtr(0.0),
			},
		)

		// Without credit-load constraints nothing ties active[s] to the courses of s
		if !state.enabled(FamilyCreditLoad) {
			constraints = append(constraints, milp.Constraint{
				Name:  fmt.Sprintf("bandActivity[%v]", semester),
				Terms: append(slices.Clone(terms), milp.Term{Variable: active, Coefficient: -float64(offeredCredits(state, semester))}),
				Max:   lo.ToPtr(0.0),
			})
		}
	}

	return constraints
}

// sum_s x[c,s] <= 1
func singleAssignmentConstraints(state constraintState) []milp.Constraint {
	constraints := make([]milp.Constraint, 0, len(state.input.pending))

	for _, course := range state.input.pending {
		terms := make([]milp.Term, 0, len(state.input.horizon))
		for _, semester := range state.input.horizon {
			if index, ok := state.indexer.Index(course, semester); ok {
				terms = append(terms, milp.Term{Variable: int(index), Coefficient: 1})
			}
		}
		if len(terms) == 0 {
			continue
		}

		constraints = append(constraints, milp.Constraint{
			Name:  fmt.Sprintf("single[%v]", state.input.Catalog[course].Id),
			Terms: terms,
			Max:   lo.ToPtr(1.0),
		})
	}

	return constraints
}

// x[c,overflow] - useOverflow <= 0
func overflowLinkageConstraints(state constraintState) []milp.Constraint {
	if state.useOverflow < 0 {
		return nil
	}

	overflow := state.input.Config.OverflowSemester
	constraints := make([]milp.Constraint, 0, len(state.input.pending))

	for _, course := range state.input.pending {
		index, ok := state.indexer.Index(course, overflow)
		if !ok {
			continue
		}
		constraints = append(constraints, milp.Constraint{
			Name:  fmt.Sprintf("overflow[%v]", state.input.Catalog[course].Id),
			Terms: []milp.Term{{Variable: int(index), Coefficient: 1}, {Variable: state.useOverflow, Coefficient: -1}},
			Max:   lo.ToPtr(0.0),
		})
	}

	return constraints
}

func creditTerms(state constraintState, semester uint64) []milp.Term {
	terms := make([]milp.Term, 0)
	for _, course := range state.input.pending {
		if index, ok := state.indexer.Index(course, semester); ok {
			terms = append(terms, milp.Term{Variable: int(index), Coefficient: float64(state.input.Catalog[course].Credits)})
		}
	}
	return terms
}

// offeredCredits returns the credits of every pending course that can be taken in semester
func offeredCredits(state constraintState, semester uint64) uint64 {
	return lo.SumBy(state.input.pending, func(course uint64) uint64 {
		if _, ok := state.indexer.Index(course, semester); ok {
			return state.input.Catalog[course].Credits
		}
		return 0
	})
}
