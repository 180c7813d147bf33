package model

import (
	"context"
	"fmt"
	"slices"

	"github.com/limaJavier/academicplan/pkg/milp"
	"golang.org/x/sync/errgroup"
)

// buildModel translates the input into a MILP model made of the given constraint families.
// Scheduling variables take the first indices of the model, so a variable index is also its indexer index
func buildModel(ctx context.Context, input ModelInput, families []Family) (*milp.Model, indexer, error) {
	model := milp.NewModel()
	indexer := newIndexer(input)
	config := input.Config

	//** Scheduling variables
	for index := range indexer.Variables() {
		course, semester := indexer.Attributes(index)
		model.AddVariable(milp.Binary(variableName(input, course, semester)))
	}

	//** Auxiliary variables
	state := constraintState{
		input:       input,
		indexer:     indexer,
		families:    families,
		active:      make(map[uint64]int),
		over:        make(map[uint64]int),
		under:       make(map[uint64]int),
		useOverflow: -1,
	}

	band := slices.Contains(families, FamilyCreditBand) && config.PreferredCreditBand != [2]uint64{}
	if slices.Contains(families, FamilyCreditLoad) || band {
		for _, semester := range input.horizon {
			state.active[semester] = model.AddVariable(milp.Binary(fmt.Sprintf("active[%v]", semester)))
		}
	}
	if band {
		low, high := config.PreferredCreditBand[0], config.PreferredCreditBand[1]
		for _, semester := range input.horizon {
			ceiling := offeredCredits(state, semester)
			if slices.Contains(families, FamilyCreditLoad) {
				ceiling = min(ceiling, config.MaxCreditsPerSemester)
			}
			state.over[semester] = model.AddVariable(milp.Bounded(fmt.Sprintf("over[%v]", semester), 0, float64(saturatingSub(ceiling, high))))
			state.under[semester] = model.AddVariable(milp.Bounded(fmt.Sprintf("under[%v]", semester), 0, float64(low)))
		}
	}
	if slices.Contains(families, FamilyOverflowLinkage) && config.OverflowSemester != 0 {
		state.useOverflow = model.AddVariable(milp.Binary("useOverflow"))
	}

	//** Constraint families
	for _, family := range families {
		if _, ok := constraintFamilies[family]; !ok {
			return nil, nil, fmt.Errorf("unknown constraint family \"%v\"", family)
		}
	}

	results := make([][]milp.Constraint, len(families))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, family := range families {
		generate := constraintFamilies[family]
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			results[i] = generate(state)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	// Collected in family order so the model does not depend on goroutine scheduling
	for _, constraints := range results {
		for _, constraint := range constraints {
			model.AddConstraint(constraint)
		}
	}

	model.SetObjective(milp.Minimize, objectiveTerms(state))
	return model, indexer, nil
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
