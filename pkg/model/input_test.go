package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	require.Nil(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func TestInputFromFile(t *testing.T) {
	t.Run("Json", func(t *testing.T) {
		// Arrange
		file := writeInput(t, "input.json", `{
			"catalog": [
				{"id": "A", "credits": 3, "fulfills": "R1, R2"},
				{"id": "B", "credits": 4, "prerequisites": [["A", " C "], []], "fulfills": ["R1", "R1"]}
			],
			"requirements": [{"code": "R1", "totalNeeded": 2, "alreadyCompleted": 1}, {"code": "R2", "totalNeeded": 1}],
			"completed": [{"id": "C", "semester": 2}],
			"config": {"planningSemesters": [5, 3, 4], "overflowSemester": 0, "solveTimeout": "5s", "disabled": ["creditBand"]}
		}`)

		// Act
		input, err := InputFromFile(file)

		// Assert
		require.Nil(t, err)
		assert.Equal(t, []string{"R1", "R2"}, input.Catalog[0].Fulfills)
		assert.Equal(t, [][]string{{"A", "C"}}, input.Catalog[1].Prerequisites)
		assert.Equal(t, []string{"R1"}, input.Catalog[1].Fulfills)
		assert.Equal(t, []uint64{3, 4, 5}, input.horizon)
		assert.Equal(t, 5*time.Second, input.Config.SolveTimeout)
		assert.False(t, input.Config.Enabled(FamilyCreditBand))
		assert.Equal(t, uint64(19), input.Config.MaxCreditsPerSemester) // Untouched defaults survive
		assert.Equal(t, lo.ToPtr(uint64(1)), input.Requirements[0].AlreadyCompleted)
		assert.Nil(t, input.Requirements[1].AlreadyCompleted)
		assert.Equal(t, []uint64{0, 1}, input.pending)
	})

	t.Run("Yaml", func(t *testing.T) {
		// Arrange
		file := writeInput(t, "input.yaml", `
catalog:
  - id: A
    credits: 3
    fulfills: [R1]
    offered: [4]
requirements:
  - code: R1
    totalNeeded: 1
config:
  completedSource: supplied
  preferredCreditBand: [13, 16]
`)

		// Act
		input, err := InputFromFile(file)

		// Assert
		require.Nil(t, err)
		assert.Equal(t, CompletedSupplied, input.Config.CompletedSource)
		assert.Equal(t, [2]uint64{13, 16}, input.Config.PreferredCreditBand)
		assert.Equal(t, []uint64{4}, input.offered(0))
	})
}

func TestInputValidation(t *testing.T) {
	scenarios := map[string]string{
		"Delimited prerequisites":  `{"catalog": [{"id": "A", "credits": 3, "prerequisites": "B, C/D"}]}`,
		"Delimited group":          `{"catalog": [{"id": "D", "credits": 3, "prerequisites": ["A, B/C"]}]}`,
		"Group without list":       `{"catalog": [{"id": "D", "credits": 3, "prerequisites": [["A"], "B"]}]}`,
		"Duplicate course":         `{"catalog": [{"id": "A", "credits": 3}, {"id": "A", "credits": 4}]}`,
		"Zero credits":             `{"catalog": [{"id": "A", "credits": 0}]}`,
		"Duplicate requirement":    `{"requirements": [{"code": "R1"}, {"code": "R1"}]}`,
		"Completed inside horizon": `{"completed": [{"id": "A", "semester": 3}]}`,
		"Completed twice":          `{"completed": [{"id": "A", "semester": 1}, {"id": "A", "semester": 2}]}`,
		"Gap in horizon":           `{"config": {"planningSemesters": [3, 5]}}`,
		"Overflow inside horizon":  `{"config": {"overflowSemester": 5}}`,
		"Empty credit range":       `{"config": {"minCreditsPerSemester": 20}}`,
		"Unknown family":           `{"config": {"disabled": ["electives"]}}`,
		"Unknown completed source": `{"config": {"completedSource": "guessed"}}`,
	}

	for name, content := range scenarios {
		//** Arrange
		file := writeInput(t, "input.json", content)

		//** Act
		_, err := InputFromFile(file)

		//** Assert
		assert.NotNil(t, err, name)
	}
}

func TestNewModelInputDoesNotModifyArguments(t *testing.T) {
	// Arrange
	catalog := []Course{{Id: "A", Credits: 3, Fulfills: []string{" R1 ", "R1"}}}

	// Act
	input, err := NewModelInput(catalog, nil, nil, DefaultConfig())

	// Assert
	require.Nil(t, err)
	assert.Equal(t, []string{" R1 ", "R1"}, catalog[0].Fulfills)
	assert.Equal(t, []string{"R1"}, input.Catalog[0].Fulfills)
}

func TestDelimitedPrerequisiteGroups(t *testing.T) {
	// Arrange
	file := writeInput(t, "input.yaml", `
catalog:
  - id: D
    credits: 3
    prerequisites: ["A, B/C"]
`)

	// Act
	input, err := InputFromFile(file)

	// Assert
	assert.ErrorContains(t, err, "A, B/C")
	assert.Empty(t, input.Catalog)
}
