package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"reflect"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

type Course struct {
	Id            string
	Name          string
	Credits       uint64
	Prerequisites [][]string // Every group must be satisfied by at least one of its alternatives
	Fulfills      []string   // Requirement codes
	Offered       []uint64   // Semesters the course is offered in, empty means all of them
}

type Requirement struct {
	Code             string
	TotalNeeded      uint64
	AlreadyCompleted *uint64 // Optional, see CompletedSource
}

type CompletedCourse struct {
	Id       string
	Semester uint64
}

type RawModelInput struct {
	Catalog      []Course
	Requirements []Requirement
	Completed    []CompletedCourse
	Config       map[string]any // Overrides applied on top of DefaultConfig
}

type ModelInput struct {
	Catalog      []Course
	Requirements []Requirement
	Completed    []CompletedCourse
	Config       Config

	courses          map[string]uint64 // Catalog index of each course id
	completed        map[string]uint64 // Semester of each completed course id
	pending          []uint64          // Catalog indices of courses that are not completed
	horizon          []uint64          // Planning semesters followed by the overflow semester
	derivedCompleted map[string]uint64 // Completed courses fulfilling each requirement
}

// InputFromFile decodes a JSON or YAML (by extension) input file
func InputFromFile(file string) (ModelInput, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return ModelInput{}, err
	}

	var inputMap map[string]any
	switch strings.ToLower(path.Ext(file)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(bytes, &inputMap)
	default:
		err = json.Unmarshal(bytes, &inputMap)
	}
	if err != nil {
		return ModelInput{}, err
	}

	var rawInput RawModelInput
	if err := decode(inputMap, &rawInput); err != nil {
		return ModelInput{}, err
	}
	return ProcessRawInput(rawInput)
}

func ProcessRawInput(rawInput RawModelInput) (ModelInput, error) {
	config := DefaultConfig()
	if rawInput.Config != nil {
		if err := decode(rawInput.Config, &config); err != nil {
			return ModelInput{}, fmt.Errorf("cannot decode config: %w", err)
		}
	}
	return NewModelInput(rawInput.Catalog, rawInput.Requirements, rawInput.Completed, config)
}

// NewModelInput validates and indexes the three datasets. The given slices are not modified
func NewModelInput(catalog []Course, requirements []Requirement, completed []CompletedCourse, config Config) (ModelInput, error) {
	if err := config.validate(); err != nil {
		return ModelInput{}, fmt.Errorf("invalid config: %w", err)
	}

	input := ModelInput{
		Catalog:          make([]Course, 0, len(catalog)),
		Requirements:     slices.Clone(requirements),
		Completed:        slices.Clone(completed),
		Config:           config,
		courses:          make(map[string]uint64),
		completed:        make(map[string]uint64),
		pending:          make([]uint64, 0, len(catalog)),
		horizon:          config.horizon(),
		derivedCompleted: make(map[string]uint64),
	}
	firstSemester := input.horizon[0]

	//** Manage completed courses
	for _, course := range input.Completed {
		if course.Id == "" {
			return ModelInput{}, fmt.Errorf("completed course without id")
		} else if _, ok := input.completed[course.Id]; ok {
			return ModelInput{}, fmt.Errorf("course \"%v\" is completed more than once", course.Id)
		} else if course.Semester == 0 || course.Semester >= firstSemester {
			return ModelInput{}, fmt.Errorf("completed course \"%v\" has semester %v, which is not before the planning horizon (starting at %v)", course.Id, course.Semester, firstSemester)
		}
		input.completed[course.Id] = course.Semester
	}

	//** Manage catalog
	for _, course := range catalog {
		if course.Id == "" {
			return ModelInput{}, fmt.Errorf("catalog course without id: \"%v\"", course.Name)
		} else if _, ok := input.courses[course.Id]; ok {
			return ModelInput{}, fmt.Errorf("duplicate catalog course \"%v\"", course.Id)
		} else if course.Credits == 0 {
			return ModelInput{}, fmt.Errorf("course \"%v\" must have a positive amount of credits", course.Id)
		}

		course.Fulfills = lo.Uniq(lo.Compact(lo.Map(course.Fulfills, func(code string, _ int) string { return strings.TrimSpace(code) })))
		course.Prerequisites = lo.Filter(
			lo.Map(course.Prerequisites, func(group []string, _ int) []string {
				return lo.Uniq(lo.Compact(lo.Map(group, func(id string, _ int) string { return strings.TrimSpace(id) })))
			}),
			func(group []string, _ int) bool { return len(group) > 0 },
		)
		course.Offered = slices.Clone(course.Offered)

		index := uint64(len(input.Catalog))
		input.courses[course.Id] = index
		input.Catalog = append(input.Catalog, course)
		if _, ok := input.completed[course.Id]; !ok {
			input.pending = append(input.pending, index)
		}
	}

	//** Manage requirements
	codes := make(map[string]bool)
	for _, requirement := range input.Requirements {
		if requirement.Code == "" {
			return ModelInput{}, fmt.Errorf("requirement without code")
		} else if codes[requirement.Code] {
			return ModelInput{}, fmt.Errorf("duplicate requirement \"%v\"", requirement.Code)
		}
		codes[requirement.Code] = true
	}

	// Completed courses absent from the catalog cannot be attributed to any requirement
	for _, course := range input.Completed {
		if index, ok := input.courses[course.Id]; ok {
			for _, code := range input.Catalog[index].Fulfills {
				input.derivedCompleted[code]++
			}
		}
	}

	return input, nil
}

func (input ModelInput) alreadyCompleted(requirement Requirement) uint64 {
	if input.Config.CompletedSource == CompletedSupplied && requirement.AlreadyCompleted != nil {
		return *requirement.AlreadyCompleted
	}
	return input.derivedCompleted[requirement.Code]
}

func (input ModelInput) remaining(requirement Requirement) uint64 {
	completed := input.alreadyCompleted(requirement)
	if completed >= requirement.TotalNeeded {
		return 0
	}
	return requirement.TotalNeeded - completed
}

// offered returns the horizon semesters the course can be scheduled in
func (input ModelInput) offered(course uint64) []uint64 {
	offered := input.Catalog[course].Offered
	if len(offered) == 0 {
		return input.horizon
	}
	return lo.Filter(input.horizon, func(semester uint64, _ int) bool { return slices.Contains(offered, semester) })
}

func (input ModelInput) isOverflow(semester uint64) bool {
	return input.Config.OverflowSemester != 0 && semester == input.Config.OverflowSemester
}

func (input ModelInput) isCompleted(id string) bool {
	_, ok := input.completed[id]
	return ok
}

func (input ModelInput) isPending(id string) bool {
	_, inCatalog := input.courses[id]
	return inCatalog && !input.isCompleted(id)
}

func (input ModelInput) fulfills(course uint64, code string) bool {
	return slices.Contains(input.Catalog[course].Fulfills, code)
}

func decode(input any, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			rejectDelimitedPrerequisites,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","), // "fulfills": "R1, R2"
		),
		ZeroFields: true, // Lists given in the input replace default lists instead of overwriting their prefix
		Result:     output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// Prerequisite strings such as "A, B/C" have been encoded with both delimiter conventions over time,
// so they're rejected instead of guessing which delimiter separates groups
func rejectDelimitedPrerequisites(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf([][]string{}) {
		return data, nil
	}

	switch from.Kind() {
	case reflect.String:
		return nil, fmt.Errorf("prerequisites must be a list of groups of course ids, got the string %q", data)
	case reflect.Slice, reflect.Array:
		// Groups are checked here since the comma hook would otherwise split "A, B/C" into a group
		groups := reflect.ValueOf(data)
		for i := range groups.Len() {
			if group, ok := groups.Index(i).Interface().(string); ok {
				return nil, fmt.Errorf("prerequisite groups must be lists of course ids, got the string %q", group)
			}
		}
	}
	return data, nil
}
