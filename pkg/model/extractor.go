package model

import (
	"cmp"
	"math"
	"slices"

	"github.com/limaJavier/academicplan/pkg/milp"
	"github.com/samber/lo"
)

type Schedule struct {
	Semesters map[uint64][]Course // Planning semesters (possibly empty) plus historical semesters of completed courses
	Planned   map[string]uint64   // Semester assigned to each scheduled course id
}

// RequirementAudit reports how a requirement is covered by completed and planned courses
type RequirementAudit struct {
	Code      string   `json:"code"`
	Needed    uint64   `json:"needed"`
	Completed uint64   `json:"completed"`
	Planned   uint64   `json:"planned"`
	Courses   []string `json:"courses"` // Ids of the planned courses fulfilling the requirement
}

func newSchedule(input ModelInput) Schedule {
	schedule := Schedule{
		Semesters: make(map[uint64][]Course),
		Planned:   make(map[string]uint64),
	}
	for _, semester := range input.Config.PlanningSemesters {
		schedule.Semesters[semester] = make([]Course, 0)
	}
	return schedule
}

// SemesterNumbers returns the semesters of the schedule in ascending order
func (schedule Schedule) SemesterNumbers() []uint64 {
	semesters := lo.Keys(schedule.Semesters)
	slices.Sort(semesters)
	return semesters
}

func (schedule Schedule) Credits(semester uint64) uint64 {
	return lo.SumBy(schedule.Semesters[semester], func(course Course) uint64 { return course.Credits })
}

// extractSchedule decodes the scheduling variables set to one and merges the completed courses into their semesters
func extractSchedule(input ModelInput, indexer indexer, solution *milp.Solution) Schedule {
	schedule := newSchedule(input)

	for index := range indexer.Variables() {
		if math.Abs(solution.Values[index]-1) >= milp.Tolerance {
			continue
		}
		course, semester := indexer.Attributes(index)
		schedule.Semesters[semester] = append(schedule.Semesters[semester], input.Catalog[course])
		schedule.Planned[input.Catalog[course].Id] = semester
	}

	mergeCompleted(input, &schedule)
	return schedule
}

func mergeCompleted(input ModelInput, schedule *Schedule) {
	for _, completed := range input.Completed {
		course := Course{Id: completed.Id}
		if index, ok := input.courses[completed.Id]; ok {
			course = input.Catalog[index]
		}
		schedule.Semesters[completed.Semester] = append(schedule.Semesters[completed.Semester], course)
	}
}

func auditRequirements(input ModelInput, schedule Schedule) []RequirementAudit {
	return lo.Map(input.Requirements, func(requirement Requirement, _ int) RequirementAudit {
		courses := lo.Filter(lo.Keys(schedule.Planned), func(id string, _ int) bool {
			return input.fulfills(input.courses[id], requirement.Code)
		})
		slices.SortFunc(courses, func(a, b string) int {
			return cmp.Or(cmp.Compare(schedule.Planned[a], schedule.Planned[b]), cmp.Compare(a, b))
		})

		return RequirementAudit{
			Code:      requirement.Code,
			Needed:    requirement.TotalNeeded,
			Completed: input.alreadyCompleted(requirement),
			Planned:   uint64(len(courses)),
			Courses:   courses,
		}
	})
}
