package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/limaJavier/academicplan/pkg/logger"
	"github.com/limaJavier/academicplan/pkg/milp"
	"github.com/limaJavier/academicplan/pkg/model"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	exitSolved       = 10
	exitUnverified   = 15
	exitInfeasible   = 20
	exitTimeout      = 30
	exitInvalidInput = 1
)

var (
	validSolvers = []string{"pseudoboolean", "cbc"}
	solvers      = map[string]func() milp.Solver{
		"pseudoboolean": milp.NewPseudoBooleanSolver,
		"cbc":           milp.NewCbcSolver,
	}
)

type courseOutput struct {
	Id      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Credits uint64 `json:"credits,omitempty"`
}

type planOutput struct {
	RunId     string                    `json:"runId"`
	Semesters map[string][]courseOutput `json:"semesters"`
	Credits   map[string]uint64         `json:"credits"`
	Audit     []model.RequirementAudit  `json:"audit"`
	Warnings  []string                  `json:"warnings"`
	Objective float64                   `json:"objective"`
	Optimal   bool                      `json:"optimal"`
}

type failureOutput struct {
	Diagnostics []string `json:"diagnostics"`
	Warnings    []string `json:"warnings"`
}

func main() {
	setConfigPath()
	// Define arguments
	solverPtr := flag.String("solver", "pseudoboolean", "MILP solver to use. Allowed values are: \"pseudoboolean\" (in-process) and \"cbc\" (external executable), where \"pseudoboolean\" is the default")
	filePathPtr := flag.String("file", "", "Path to the input file (.json, .yaml or .yml)")
	outFilePathPtr := flag.String("out", "", "Path to the file where the output will be written; if empty, it'll be written into the Standard Output")
	timeoutPtr := flag.Duration("timeout", 0, "Wall-clock budget of the solver, overriding the input's solveTimeout when positive")
	logLevelPtr := flag.String("log-level", "warn", "Log level: debug, info, warn or error")
	logFormatPtr := flag.String("log-format", "console", "Log format: console or json")
	flag.Parse()
	solverStr := strings.ToLower(*solverPtr)
	filePath := *filePathPtr
	outFile := *outFilePathPtr

	// Validate arguments
	if !slices.Contains(validSolvers, solverStr) {
		log.Fatalf("%v is not a valid solver", solverStr)
	} else if filePath == "" {
		log.Fatal("an input file must be specified")
	}

	zapLogger, err := logger.NewLogger(logger.Config{Level: *logLevelPtr, Format: *logFormatPtr})
	if err != nil {
		log.Fatalf("cannot initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Extract input
	input, err := model.InputFromFile(filePath)
	if err != nil {
		zapLogger.Error("cannot parse input file", zap.String("file", filePath), zap.Error(err))
		exit(zapLogger, exitInvalidInput)
	}
	if *timeoutPtr > 0 {
		input.Config.SolveTimeout = *timeoutPtr
	}

	// Initialize engines
	planner := model.NewPlanner(solvers[solverStr](), model.WithLogger(zapLogger))

	// Build plan, giving up on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	start := time.Now()
	outcome := <-planner.PlanAsync(ctx, input)
	zapLogger.Info("planning finished", zap.Duration("elapsed", time.Since(start)))

	var infeasibilityErr *model.InfeasibilityError
	if errors.As(outcome.Err, &infeasibilityErr) {
		write(zapLogger, outFile, failureOutput{
			Diagnostics: describe(infeasibilityErr.Diagnostics),
			Warnings:    describe(infeasibilityErr.Warnings),
		})
		if infeasibilityErr.Has(model.Timeout) {
			exit(zapLogger, exitTimeout)
		}
		exit(zapLogger, exitInfeasible)
	} else if outcome.Err != nil {
		zapLogger.Fatal("an error occurred during plan construction", zap.Error(outcome.Err))
	}

	// Verify plan correctness
	plan := outcome.Plan
	if !planner.Verify(plan, input) {
		zapLogger.Error("plan does not satisfy the input", zap.String("run", plan.RunId))
		exit(zapLogger, exitUnverified)
	}

	// Build output from plan
	output := planOutput{
		RunId:     plan.RunId,
		Semesters: make(map[string][]courseOutput),
		Credits:   make(map[string]uint64),
		Audit:     plan.Audit,
		Warnings:  describe(plan.Warnings),
		Objective: plan.Objective,
		Optimal:   plan.Optimal,
	}
	for _, semester := range plan.Schedule.SemesterNumbers() {
		key := strconv.FormatUint(semester, 10)
		output.Semesters[key] = lo.Map(plan.Schedule.Semesters[semester], func(course model.Course, _ int) courseOutput {
			return courseOutput{Id: course.Id, Name: course.Name, Credits: course.Credits}
		})
		output.Credits[key] = plan.Schedule.Credits(semester)
	}

	write(zapLogger, outFile, output)
	exit(zapLogger, exitSolved)
}

func describe(diagnostics []model.Diagnostic) []string {
	return lo.Map(diagnostics, func(diagnostic model.Diagnostic, _ int) string {
		return fmt.Sprintf("%v: %v", diagnostic.Kind, diagnostic)
	})
}

// write marshals output into json and writes it to outFile, or to the Standard Output if outFile is empty
func write(zapLogger *zap.Logger, outFile string, output any) {
	outputJson, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		zapLogger.Fatal("an error occurred while building output json", zap.Error(err))
	}

	if outFile == "" {
		fmt.Println(string(outputJson))
	} else if err := os.WriteFile(outFile, outputJson, 0666); err != nil {
		zapLogger.Fatal("an error occurred while writing to the output file", zap.Error(err))
	}
}

func exit(zapLogger *zap.Logger, code int) {
	_ = zapLogger.Sync()
	os.Exit(code)
}

// setConfigPath points the solvers to the config.json next to the executable, when there is one
func setConfigPath() {
	execPath, err := os.Executable()
	if err != nil {
		log.Fatalf("cannot determine executable path: %v", err)
	}
	execPath = path.Dir(execPath)

	files, err := os.ReadDir(execPath)
	if err != nil {
		log.Fatalf("cannot read executable's directory: %v", err)
	}
	fileNames := lo.Map(files, func(file os.DirEntry, _ int) string { return file.Name() })

	if slices.Contains(fileNames, "config.json") {
		milp.ConfigPath = execPath + "/config.json"
	}
}
