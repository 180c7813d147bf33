package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/limaJavier/academicplan/pkg/milp"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Planner interface {
	// Plan builds and solves the planning model of input. When no plan exists the error is an *InfeasibilityError
	Plan(
		ctx context.Context,
		input ModelInput,
	) (*Plan, error)

	// PlanAsync runs Plan in its own goroutine and delivers its single outcome on the returned channel
	PlanAsync(
		ctx context.Context,
		input ModelInput,
	) <-chan Outcome

	Verify(
		plan *Plan,
		input ModelInput,
	) bool
}

type Plan struct {
	RunId       string
	Schedule    Schedule
	Audit       []RequirementAudit
	Warnings    []Diagnostic
	Objective   float64
	Optimal     bool // False when the time budget ran out before optimality was proven
	Variables   int
	Constraints int
}

type Outcome struct {
	Plan *Plan
	Err  error
}

type Option func(planner *milpPlanner)

func WithLogger(logger *zap.Logger) Option {
	return func(planner *milpPlanner) {
		planner.logger = logger
	}
}

type milpPlanner struct {
	solver milp.Solver
	logger *zap.Logger
}

func NewPlanner(solver milp.Solver, options ...Option) Planner {
	planner := &milpPlanner{
		solver: solver,
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option(planner)
	}
	return planner
}

func (planner *milpPlanner) Plan(ctx context.Context, input ModelInput) (*Plan, error) {
	runId := uuid.NewString()
	logger := planner.logger.With(zap.String("run", runId))
	config := input.Config

	//** Static checks
	fatal, warnings := staticDiagnostics(input)
	for _, warning := range warnings {
		logger.Warn("suspicious input", zap.Stringer("kind", warning.Kind), zap.String("detail", warning.String()))
	}
	if len(fatal) > 0 {
		logger.Info("plan rejected before solving", zap.Int("diagnostics", len(fatal)))
		return nil, &InfeasibilityError{Diagnostics: fatal, Warnings: warnings}
	}

	// Nothing forces a course into the schedule, so the empty schedule is the optimum
	outstanding := lo.SomeBy(input.Requirements, func(requirement Requirement) bool { return input.remaining(requirement) > 0 })
	if len(input.pending) == 0 || !outstanding || !config.Enabled(FamilyRequirements) {
		logger.Info("no remaining work", zap.Int("pending", len(input.pending)))
		schedule := newSchedule(input)
		mergeCompleted(input, &schedule)
		return &Plan{
			RunId:    runId,
			Schedule: schedule,
			Audit:    auditRequirements(input, schedule),
			Warnings: warnings,
			Optimal:  true,
		}, nil
	}

	if config.SolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.SolveTimeout)
		defer cancel()
	}

	//** Build
	model, indexer, err := buildModel(ctx, input, config.EnabledFamilies())
	if err != nil {
		return nil, fmt.Errorf("cannot build planning model: %w", err)
	}
	logger.Debug("model built",
		zap.Int("variables", len(model.Variables)),
		zap.Int("constraints", len(model.Constraints)),
		zap.Strings("families", lo.Map(config.EnabledFamilies(), func(family Family, _ int) string { return string(family) })),
	)

	//** Solve
	start := time.Now()
	solution, err := planner.solver.Solve(ctx, model)
	elapsed := time.Since(start)
	if errors.Is(err, milp.ErrTimeout) {
		logger.Warn("solver timed out", zap.Duration("elapsed", elapsed))
		return nil, &InfeasibilityError{Diagnostics: []Diagnostic{{Kind: Timeout}}, Warnings: warnings}
	} else if err != nil {
		return nil, fmt.Errorf("cannot solve planning model: %w", err)
	}

	if solution == nil {
		diagnostic := Diagnostic{
			Kind:        InfeasibleModel,
			Variables:   len(model.Variables),
			Constraints: len(model.Constraints),
		}
		if config.IsolateInfeasibility {
			diagnostic.Suspects = planner.isolate(ctx, input, logger)
		}
		logger.Info("model is infeasible", zap.Duration("elapsed", elapsed), zap.String("detail", diagnostic.String()))
		return nil, &InfeasibilityError{Diagnostics: []Diagnostic{diagnostic}, Warnings: warnings}
	}

	if !milp.Feasible(model, solution) {
		return nil, fmt.Errorf("solver returned an assignment that violates the planning model")
	}

	//** Extract
	schedule := extractSchedule(input, indexer, solution)
	logger.Info("plan found",
		zap.Duration("elapsed", elapsed),
		zap.Float64("objective", solution.Objective),
		zap.Bool("optimal", solution.Optimal),
		zap.Int("scheduled", len(schedule.Planned)),
	)

	return &Plan{
		RunId:       runId,
		Schedule:    schedule,
		Audit:       auditRequirements(input, schedule),
		Warnings:    warnings,
		Objective:   solution.Objective,
		Optimal:     solution.Optimal,
		Variables:   len(model.Variables),
		Constraints: len(model.Constraints),
	}, nil
}

func (planner *milpPlanner) PlanAsync(ctx context.Context, input ModelInput) <-chan Outcome {
	outcome := make(chan Outcome, 1)
	go func() {
		defer close(outcome)
		plan, err := planner.Plan(ctx, input)
		outcome <- Outcome{Plan: plan, Err: err}
	}()
	return outcome
}

func (planner *milpPlanner) Verify(plan *Plan, input ModelInput) bool {
	return plan != nil && verify(plan.Schedule, input)
}

// isolate re-solves the model once per enabled family with that family left out, and returns the families whose
// removal makes the model feasible. Relaxations that fail or run out of time are not reported
func (planner *milpPlanner) isolate(ctx context.Context, input ModelInput, logger *zap.Logger) []Family {
	families := input.Config.EnabledFamilies()
	restores := make([]bool, len(families))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, family := range families {
		group.Go(func() error {
			relaxed := lo.Without(families, family)
			model, _, err := buildModel(groupCtx, input, relaxed)
			if err != nil {
				return err
			}

			solution, err := planner.solver.Solve(groupCtx, model)
			if err != nil {
				logger.Debug("relaxation not decided", zap.String("without", string(family)), zap.Error(err))
				return nil
			}
			restores[i] = solution != nil
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		logger.Debug("infeasibility isolation interrupted", zap.Error(err))
	}

	return lo.Filter(families, func(_ Family, i int) bool { return restores[i] })
}
