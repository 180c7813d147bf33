package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
)

// Family names an independently toggleable block of constraints of the planning model
type Family string

const (
	FamilyRequirements     Family = "requirements"
	FamilyPrerequisites    Family = "prerequisites"
	FamilyCreditLoad       Family = "creditLoad"
	FamilyCreditBand       Family = "creditBand"
	FamilySingleAssignment Family = "singleAssignment"
	FamilyOverflowLinkage  Family = "overflowLinkage"
)

// Families lists every constraint family in the order they are added to the model
var Families = []Family{
	FamilyRequirements,
	FamilyPrerequisites,
	FamilyCreditLoad,
	FamilyCreditBand,
	FamilySingleAssignment,
	FamilyOverflowLinkage,
}

// CompletedSource selects where the already-completed count of a requirement comes from
type CompletedSource string

const (
	// Count completed courses whose catalog entry fulfills the requirement
	CompletedDerived CompletedSource = "derived"
	// Trust Requirement.AlreadyCompleted, deriving it only when absent
	CompletedSupplied CompletedSource = "supplied"
)

type Config struct {
	PlanningSemesters     []uint64 // Contiguous semesters eligible for pending courses
	OverflowSemester      uint64   // Extra semester usable at a heavy penalty, 0 disables it
	MinCreditsPerSemester uint64
	MaxCreditsPerSemester uint64
	PreferredCreditBand   [2]uint64 // Soft [low, high] band, {0, 0} disables it
	CompletedSource       CompletedSource
	Disabled              []Family

	EarlinessWeight  uint64 // Cost per course and semester rank
	OverflowPenalty  uint64
	BandPenalty      uint64 // Cost per credit outside the preferred band
	FulfillmentBonus uint64 // Discount per outstanding requirement a course fulfills

	SolveTimeout         time.Duration
	IsolateInfeasibility bool
}

func DefaultConfig() Config {
	return Config{
		PlanningSemesters:     []uint64{3, 4, 5, 6, 7, 8},
		OverflowSemester:      9,
		MinCreditsPerSemester: 12,
		MaxCreditsPerSemester: 19,
		PreferredCreditBand:   [2]uint64{14, 17},
		CompletedSource:       CompletedDerived,
		EarlinessWeight:       1,
		OverflowPenalty:       1000,
		BandPenalty:           1,
		FulfillmentBonus:      1,
		SolveTimeout:          30 * time.Second,
	}
}

func (config Config) Enabled(family Family) bool {
	return !slices.Contains(config.Disabled, family)
}

// EnabledFamilies returns the families that take part in the model, in model order
func (config Config) EnabledFamilies() []Family {
	return lo.Filter(Families, func(family Family, _ int) bool { return config.Enabled(family) })
}

func (config Config) bandEnabled() bool {
	return config.Enabled(FamilyCreditBand) && config.PreferredCreditBand != [2]uint64{}
}

// horizon returns the planning semesters in ascending order followed by the overflow semester (if any)
func (config Config) horizon() []uint64 {
	horizon := slices.Clone(config.PlanningSemesters)
	slices.Sort(horizon)
	if config.OverflowSemester != 0 {
		horizon = append(horizon, config.OverflowSemester)
	}
	return horizon
}

func (config Config) validate() error {
	if len(config.PlanningSemesters) == 0 {
		return fmt.Errorf("at least one planning semester must be configured")
	}

	planning := slices.Clone(config.PlanningSemesters)
	slices.Sort(planning)
	for i, semester := range planning {
		if semester == 0 {
			return fmt.Errorf("semester numbers must be positive")
		} else if i > 0 && semester != planning[i-1]+1 {
			return fmt.Errorf("planning semesters must be contiguous: %v", planning)
		}
	}

	if config.OverflowSemester != 0 && config.OverflowSemester <= planning[len(planning)-1] {
		return fmt.Errorf("overflow semester %v must follow the planning semesters %v", config.OverflowSemester, planning)
	}
	if config.MaxCreditsPerSemester == 0 {
		return fmt.Errorf("maximum credits per semester must be positive")
	} else if config.MinCreditsPerSemester > config.MaxCreditsPerSemester {
		return fmt.Errorf("minimum credits per semester (%v) exceed the maximum (%v)", config.MinCreditsPerSemester, config.MaxCreditsPerSemester)
	}
	if low, high := config.PreferredCreditBand[0], config.PreferredCreditBand[1]; low > high {
		return fmt.Errorf("preferred credit band [%v, %v] is empty", low, high)
	}
	if config.CompletedSource != CompletedDerived && config.CompletedSource != CompletedSupplied {
		return fmt.Errorf("unknown completed source \"%v\"", config.CompletedSource)
	}
	if unknown, ok := lo.Find(config.Disabled, func(family Family) bool { return !slices.Contains(Families, family) }); ok {
		return fmt.Errorf("unknown constraint family \"%v\"", unknown)
	}

	return nil
}
