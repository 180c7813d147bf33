package model

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limaJavier/academicplan/pkg/milp"
)

func constraintNames(model *milp.Model) []string {
	return lo.Map(model.Constraints, func(constraint milp.Constraint, _ int) string { return constraint.Name })
}

func TestBuildModel(t *testing.T) {
	// Arrange
	input := mustInput(t, chainCatalog(), []Requirement{{Code: "R1", TotalNeeded: 2}}, nil, testConfig())
	g := NewWithT(t)

	// Act
	model, indexer, err := buildModel(context.Background(), input, input.Config.EnabledFamilies())

	// Assert
	require.Nil(t, err)
	assert.Equal(t, uint64(8), indexer.Variables())
	assert.Len(t, model.Variables, 8+4+1) // Scheduling, active semesters and overflow usage

	index, ok := model.Lookup("x[B,5]")
	require.True(t, ok)
	course, semester := indexer.Attributes(uint64(index))
	assert.Equal(t, [2]uint64{1, 5}, [2]uint64{course, semester})

	names := constraintNames(model)
	g.Expect(names).To(HaveLen(1 + 4 + 7 + 2 + 2))
	g.Expect(names).To(ContainElements("requirement[R1]", "prerequisite[B,0,4]", "maxCredits[6]", "minCredits[5]", "single[A]", "overflow[B]"))
	g.Expect(names).NotTo(ContainElement("minCredits[6]")) // Overflow semester has no minimum
	g.Expect(names).NotTo(ContainElement(HavePrefix("overBand")))

	assert.Equal(t, "requirement[R1]", names[0]) // Families keep their order
	assert.Equal(t, "overflow[B]", names[len(names)-1])
}

func TestBuildModelIsDeterministic(t *testing.T) {
	// Arrange
	input, err := GenerateInput(12, 3, 7)
	require.Nil(t, err)
	families := input.Config.EnabledFamilies()

	// Act
	first, _, firstErr := buildModel(context.Background(), input, families)
	second, _, secondErr := buildModel(context.Background(), input, families)

	// Assert
	require.Nil(t, firstErr)
	require.Nil(t, secondErr)
	assert.Equal(t, first, second)
}

func TestBuildModelWithoutFamilies(t *testing.T) {
	// Arrange
	input := mustInput(t, chainCatalog(), []Requirement{{Code: "R1", TotalNeeded: 2}}, nil, testConfig())

	// Act
	model, _, err := buildModel(context.Background(), input, []Family{FamilyRequirements})

	// Assert
	require.Nil(t, err)
	assert.Len(t, model.Variables, 8)
	assert.Equal(t, []string{"requirement[R1]"}, constraintNames(model))
}

func TestPrerequisiteRows(t *testing.T) {
	// Arrange
	catalog := []Course{
		{Id: "A", Credits: 3},
		{Id: "B", Credits: 3},
		{Id: "C", Credits: 3, Prerequisites: [][]string{{"A", "B"}, {"DONE"}, {"MISSING"}}},
	}
	input := mustInput(t, catalog, nil, []CompletedCourse{{Id: "DONE", Semester: 1}}, testConfig())
	model, _, err := buildModel(context.Background(), input, []Family{FamilyPrerequisites})
	require.Nil(t, err)

	// Act
	row, ok := lo.Find(model.Constraints, func(constraint milp.Constraint) bool { return constraint.Name == "prerequisite[C,0,5]" })

	// Assert
	require.True(t, ok)
	assert.Len(t, model.Constraints, 4) // Only the first group yields rows, one per semester of C
	assert.Len(t, row.Terms, 1+2+2)     // x[C,5] against A and B in semesters 3 and 4
	assert.Equal(t, 0.0, *row.Max)
	assert.Nil(t, row.Min)
}
