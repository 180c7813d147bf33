package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

type DiagnosticKind int

const (
	UnsatisfiableRequirement DiagnosticKind = iota
	DanglingPrerequisite
	HorizonCreditMismatch
	CompletedCountMismatch
	InfeasibleModel
	Timeout
)

func (kind DiagnosticKind) String() string {
	switch kind {
	case UnsatisfiableRequirement:
		return "UnsatisfiableRequirement"
	case DanglingPrerequisite:
		return "DanglingPrerequisite"
	case HorizonCreditMismatch:
		return "HorizonCreditMismatch"
	case CompletedCountMismatch:
		return "CompletedCountMismatch"
	case InfeasibleModel:
		return "InfeasibleModel"
	case Timeout:
		return "Timeout"
	default:
		return fmt.Sprintf("DiagnosticKind(%d)", int(kind))
	}
}

// Diagnostic explains why a plan could not be produced, or warns about suspicious input.
// Only the fields relevant to its Kind are set
type Diagnostic struct {
	Kind         DiagnosticKind
	Requirement  string   // UnsatisfiableRequirement, HorizonCreditMismatch, CompletedCountMismatch
	Requirements []string // HorizonCreditMismatch raised by several requirements together
	Course       string   // DanglingPrerequisite
	Missing      string   // DanglingPrerequisite
	Needed       uint64   // Courses or credits required
	Available    uint64   // Courses or credits that can be provided
	Variables    int      // InfeasibleModel
	Constraints  int      // InfeasibleModel
	Suspects     []Family // InfeasibleModel: families whose removal restores feasibility
}

func (diagnostic Diagnostic) String() string {
	switch diagnostic.Kind {
	case UnsatisfiableRequirement:
		return fmt.Sprintf("requirement \"%v\" needs %v more courses but only %v pending courses can fulfill it", diagnostic.Requirement, diagnostic.Needed, diagnostic.Available)
	case DanglingPrerequisite:
		return fmt.Sprintf("course \"%v\" has prerequisite \"%v\" which is neither in the catalog nor completed", diagnostic.Course, diagnostic.Missing)
	case HorizonCreditMismatch:
		if len(diagnostic.Requirements) > 0 {
			return fmt.Sprintf("requirements %v together need at least %v credits but the planning horizon holds at most %v", strings.Join(diagnostic.Requirements, ", "), diagnostic.Needed, diagnostic.Available)
		}
		return fmt.Sprintf("requirement \"%v\" needs at least %v credits but the planning horizon holds at most %v", diagnostic.Requirement, diagnostic.Needed, diagnostic.Available)
	case CompletedCountMismatch:
		return fmt.Sprintf("requirement \"%v\" declares %v completed courses but the completed courses fulfill it %v times", diagnostic.Requirement, diagnostic.Needed, diagnostic.Available)
	case InfeasibleModel:
		message := fmt.Sprintf("model with %v variables and %v constraints is infeasible", diagnostic.Variables, diagnostic.Constraints)
		if len(diagnostic.Suspects) > 0 {
			message += fmt.Sprintf(" (feasible without: %v)", strings.Join(lo.Map(diagnostic.Suspects, func(family Family, _ int) string { return string(family) }), ", "))
		}
		return message
	case Timeout:
		return "solver ran out of time before finding a feasible plan"
	default:
		return diagnostic.Kind.String()
	}
}

// InfeasibilityError is returned when no plan can be produced. Warnings collected up to that point are kept
type InfeasibilityError struct {
	Diagnostics []Diagnostic
	Warnings    []Diagnostic
}

func (err *InfeasibilityError) Error() string {
	return fmt.Sprintf("no feasible plan: %v", strings.Join(lo.Map(err.Diagnostics, func(diagnostic Diagnostic, _ int) string {
		return diagnostic.String()
	}), "; "))
}

// Has reports whether a diagnostic of the given kind caused the failure
func (err *InfeasibilityError) Has(kind DiagnosticKind) bool {
	return slices.ContainsFunc(err.Diagnostics, func(diagnostic Diagnostic) bool { return diagnostic.Kind == kind })
}

// staticDiagnostics runs the checks that do not need a solver. Fatal diagnostics make solving pointless
func staticDiagnostics(input ModelInput) (fatal []Diagnostic, warnings []Diagnostic) {
	fatal, warnings = make([]Diagnostic, 0), make([]Diagnostic, 0)
	config := input.Config

	//** Warnings
	for _, course := range input.Catalog {
		for _, group := range course.Prerequisites {
			for _, id := range group {
				if _, ok := input.courses[id]; !ok && !input.isCompleted(id) {
					warnings = append(warnings, Diagnostic{Kind: DanglingPrerequisite, Course: course.Id, Missing: id})
				}
			}
		}
	}

	for _, requirement := range input.Requirements {
		if requirement.AlreadyCompleted == nil {
			continue
		}
		if derived := input.derivedCompleted[requirement.Code]; derived != *requirement.AlreadyCompleted {
			warnings = append(warnings, Diagnostic{
				Kind:        CompletedCountMismatch,
				Requirement: requirement.Code,
				Needed:      *requirement.AlreadyCompleted,
				Available:   derived,
			})
		}
	}

	//** Fatal
	if !config.Enabled(FamilyRequirements) {
		return fatal, warnings
	}

	creditLoad := config.Enabled(FamilyCreditLoad)
	capacity := config.MaxCreditsPerSemester * uint64(len(input.horizon))

	qualifying := make(map[string][]uint64) // Qualifying pending courses per outstanding requirement
	cheapest := make(map[string]uint64)     // Least credits covering each outstanding requirement
	outstanding := make([]string, 0)

	for _, requirement := range input.Requirements {
		remaining := input.remaining(requirement)
		if remaining == 0 {
			continue
		}

		// Credits of the pending courses that could actually be scheduled towards the requirement
		credits := make([]uint64, 0)
		for _, course := range input.pending {
			if !input.fulfills(course, requirement.Code) || len(input.offered(course)) == 0 {
				continue
			} else if creditLoad && input.Catalog[course].Credits > config.MaxCreditsPerSemester {
				continue
			}
			credits = append(credits, input.Catalog[course].Credits)
			qualifying[requirement.Code] = append(qualifying[requirement.Code], course)
		}

		if uint64(len(credits)) < remaining {
			fatal = append(fatal, Diagnostic{
				Kind:        UnsatisfiableRequirement,
				Requirement: requirement.Code,
				Needed:      remaining,
				Available:   uint64(len(credits)),
			})
			continue
		}

		if !creditLoad {
			continue
		}
		slices.Sort(credits)
		cheapest[requirement.Code] = lo.Sum(credits[:remaining])
		outstanding = append(outstanding, requirement.Code)
		if cheapest[requirement.Code] > capacity {
			fatal = append(fatal, Diagnostic{
				Kind:        HorizonCreditMismatch,
				Requirement: requirement.Code,
				Needed:      cheapest[requirement.Code],
				Available:   capacity,
			})
		}
	}

	if len(fatal) > 0 || !creditLoad {
		return fatal, warnings
	}

	// Requirements sharing no qualifying course are covered by distinct courses, so their credits add up
	disjoint := lo.Filter(outstanding, func(code string, _ int) bool {
		return !lo.SomeBy(outstanding, func(other string) bool {
			return other != code && lo.Some(qualifying[code], qualifying[other])
		})
	})
	if needed := lo.SumBy(disjoint, func(code string) uint64 { return cheapest[code] }); len(disjoint) > 1 && needed > capacity {
		fatal = append(fatal, Diagnostic{
			Kind:         HorizonCreditMismatch,
			Requirements: disjoint,
			Needed:       needed,
			Available:    capacity,
		})
	}

	return fatal, warnings
}
