package milp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"time"
)

type cbcSolver struct{}

// NewCbcSolver returns a solver backed by the COIN-OR CBC executable, configured under "cbcPath" in ConfigPath
func NewCbcSolver() Solver {
	return &cbcSolver{}
}

func (solver *cbcSolver) Solve(ctx context.Context, model *Model) (*Solution, error) {
	cbcPath, err := getExecutablePath("cbcPath", "cbc")
	if err != nil {
		return nil, err
	}
	lp := model.ToLP() // Transform model into CPLEX-LP string format

	// Create a temporary file to hold the LP content; cbc infers the format from the extension
	inputTempFile, err := os.CreateTemp("", "model-*.lp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(inputTempFile.Name()) // Ensure the file is removed after execution

	outputTempFile, err := os.CreateTemp("", "cbc_output-*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(outputTempFile.Name())
	outputTempFile.Close()

	if _, err := inputTempFile.WriteString(lp); err != nil {
		return nil, fmt.Errorf("failed to write LP to temporary file: %w", err)
	}
	if err := inputTempFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}

	args := []string{inputTempFile.Name()}
	if deadline, ok := ctx.Deadline(); ok {
		seconds := math.Max(1, math.Floor(time.Until(deadline).Seconds()))
		args = append(args, "-sec", fmt.Sprint(seconds))
	}
	args = append(args, "-solve", "-solu", outputTempFile.Name())

	cmd := exec.CommandContext(ctx, cbcPath, args...)
	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.DeadlineExceeded) {
		return nil, ErrTimeout
	} else if ctxErr != nil {
		return nil, ctxErr
	} else if err != nil {
		return nil, fmt.Errorf("an error occurred during cbc execution: %w : %v", err, stderr.String())
	}

	output, err := os.ReadFile(outputTempFile.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read output file: %w", err)
	}

	status, values, err := parseCbcSolution(string(output), len(model.Variables))
	if err != nil {
		return nil, err
	}

	switch status {
	case statusInfeasible:
		return nil, nil
	case statusStopped:
		if values == nil {
			return nil, ErrTimeout
		}
	}

	return &Solution{
		Values:    values,
		Objective: model.Objective.Value(values),
		Optimal:   status == statusOptimal,
	}, nil
}
