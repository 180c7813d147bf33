package model

import "slices"

// verify re-checks a schedule against the input, family by family, independently of the model that produced it
func verify(schedule Schedule, input ModelInput) bool {
	config := input.Config

	//** Placement
	placed := make(map[string]uint64)
	for _, semester := range schedule.SemesterNumbers() {
		for _, course := range schedule.Semesters[semester] {
			if input.isCompleted(course.Id) {
				// Completed courses must stay in their historical semester
				if input.completed[course.Id] != semester {
					return false
				}
				continue
			}

			index, ok := input.courses[course.Id]
			// Check that:
			// - The course belongs to the catalog
			// - The semester belongs to the horizon and the course is offered in it
			// - The course is not scheduled twice (when single assignment is enforced)
			if !ok || !slices.Contains(input.offered(index), semester) {
				return false
			}
			if _, twice := placed[course.Id]; twice && config.Enabled(FamilySingleAssignment) {
				return false
			}
			placed[course.Id] = semester
		}
	}

	if len(placed) != len(schedule.Planned) {
		return false
	}
	for id, semester := range placed {
		if schedule.Planned[id] != semester {
			return false
		}
	}

	//** Requirements
	if config.Enabled(FamilyRequirements) {
		for _, requirement := range input.Requirements {
			planned := uint64(0)
			for id := range placed {
				if input.fulfills(input.courses[id], requirement.Code) {
					planned++
				}
			}
			if input.alreadyCompleted(requirement)+planned < requirement.TotalNeeded {
				return false
			}
		}
	}

	//** Prerequisites
	if config.Enabled(FamilyPrerequisites) {
		for id, semester := range placed {
			for _, group := range input.Catalog[input.courses[id]].Prerequisites {
				resolvable := false
				satisfied := false
				for _, alternative := range group {
					if input.isCompleted(alternative) {
						satisfied = true
						break
					}
					if input.isPending(alternative) {
						resolvable = true
						if earlier, ok := placed[alternative]; ok && earlier < semester {
							satisfied = true
							break
						}
					}
				}
				// Groups without any known alternative are not enforced
				if resolvable && !satisfied {
					return false
				}
			}
		}
	}

	//** Credits
	if config.Enabled(FamilyCreditLoad) {
		for _, semester := range input.horizon {
			credits := schedule.Credits(semester)
			if credits == 0 {
				continue
			}
			if credits > config.MaxCreditsPerSemester || (!input.isOverflow(semester) && credits < config.MinCreditsPerSemester) {
				return false
			}
		}
	}

	return true
}
