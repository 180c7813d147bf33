package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfeasibilityError(t *testing.T) {
	// Arrange
	var err error = &InfeasibilityError{
		Diagnostics: []Diagnostic{
			{Kind: UnsatisfiableRequirement, Requirement: "R9", Needed: 1},
			{Kind: InfeasibleModel, Variables: 10, Constraints: 4, Suspects: []Family{FamilyPrerequisites}},
		},
		Warnings: []Diagnostic{{Kind: DanglingPrerequisite, Course: "C", Missing: "ZZZ-999"}},
	}
	wrapped := fmt.Errorf("planning failed: %w", err)

	// Act
	var infeasibilityErr *InfeasibilityError
	ok := errors.As(wrapped, &infeasibilityErr)

	// Assert
	assert.True(t, ok)
	assert.True(t, infeasibilityErr.Has(UnsatisfiableRequirement))
	assert.True(t, infeasibilityErr.Has(InfeasibleModel))
	assert.False(t, infeasibilityErr.Has(DanglingPrerequisite)) // Warnings never cause the failure
	assert.Equal(t,
		"no feasible plan: requirement \"R9\" needs 1 more courses but only 0 pending courses can fulfill it; "+
			"model with 10 variables and 4 constraints is infeasible (feasible without: prerequisites)",
		err.Error(),
	)
}

func TestDiagnosticKindString(t *testing.T) {
	kinds := map[DiagnosticKind]string{
		UnsatisfiableRequirement: "UnsatisfiableRequirement",
		DanglingPrerequisite:     "DanglingPrerequisite",
		HorizonCreditMismatch:    "HorizonCreditMismatch",
		CompletedCountMismatch:   "CompletedCountMismatch",
		InfeasibleModel:          "InfeasibleModel",
		Timeout:                  "Timeout",
		DiagnosticKind(42):       "DiagnosticKind(42)",
	}

	for kind, expected := range kinds {
		assert.Equal(t, expected, kind.String())
	}
}

func TestStaticDiagnostics(t *testing.T) {
	// Arrange
	config := testConfig()
	config.MaxCreditsPerSemester = 4
	config.MinCreditsPerSemester = 0
	catalog := []Course{
		{Id: "HEAVY", Credits: 5, Fulfills: []string{"R1"}}, // Cannot fit any semester
		{Id: "LIGHT", Credits: 3, Fulfills: []string{"R1"}, Prerequisites: [][]string{{"GONE", "LIGHT2"}}},
		{Id: "LIGHT2", Credits: 3, Fulfills: []string{"R2"}},
	}
	requirements := []Requirement{{Code: "R1", TotalNeeded: 2}, {Code: "R2", TotalNeeded: 1}}
	input := mustInput(t, catalog, requirements, nil, config)

	// Act
	fatal, warnings := staticDiagnostics(input)

	// Assert
	assert.Equal(t, []Diagnostic{{Kind: UnsatisfiableRequirement, Requirement: "R1", Needed: 2, Available: 1}}, fatal)
	assert.Equal(t, []Diagnostic{{Kind: DanglingPrerequisite, Course: "LIGHT", Missing: "GONE"}}, warnings)
}
