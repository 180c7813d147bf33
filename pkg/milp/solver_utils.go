package milp

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

// ConfigPath points to a JSON file mapping solver keys (e.g. "cbcPath") to executables
var ConfigPath = "../../config.json"

type solverStatus int

const (
	statusOptimal solverStatus = iota
	statusStopped
	statusInfeasible
	statusUnknown
)

// getExecutablePath resolves the executable configured under key, falling back to fallback on $PATH
// when the config file is missing or does not mention key
func getExecutablePath(key, fallback string) (string, error) {
	bytes, err := os.ReadFile(ConfigPath)
	if err == nil {
		var configJson map[string]any
		if err := json.Unmarshal(bytes, &configJson); err != nil {
			return "", fmt.Errorf("cannot read solver config file \"%v\": %w", ConfigPath, err)
		}

		var config map[string]string
		if err := mapstructure.Decode(configJson, &config); err != nil {
			return "", fmt.Errorf("cannot decode solver config file \"%v\": %w", ConfigPath, err)
		}

		if path, ok := config[key]; ok && path != "" {
			return path, nil
		}
	}

	path, err := exec.LookPath(fallback)
	if err != nil {
		return "", fmt.Errorf("solver \"%v\" is neither configured nor present in PATH: %w", fallback, err)
	}
	return path, nil
}

// parseCbcSolution reads a CBC "solu" file: a status line followed by "<index> <name> <value> <reduced cost>" rows.
// Rows may be prefixed with "**" when CBC flags a value; variables not listed are zero
func parseCbcSolution(output string, variables int) (solverStatus, []float64, error) {
	lines := lo.Filter(strings.Split(output, "\n"), func(line string, _ int) bool {
		return strings.TrimSpace(line) != ""
	})
	if len(lines) == 0 {
		return statusUnknown, nil, fmt.Errorf("empty cbc solution file")
	}

	header := strings.ToLower(lines[0])
	var status solverStatus
	switch {
	case strings.HasPrefix(header, "optimal"):
		status = statusOptimal
	case strings.Contains(header, "infeasible"):
		return statusInfeasible, nil, nil
	case strings.HasPrefix(header, "stopped"):
		status = statusStopped
	default:
		return statusUnknown, nil, fmt.Errorf("unexpected cbc status line: %v", lines[0])
	}

	values := make([]float64, variables)
	found := false
	for _, line := range lines[1:] {
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "**"))
		if len(fields) < 3 {
			return statusUnknown, nil, fmt.Errorf("malformed cbc solution row: %v", line)
		}

		name := fields[1]
		if !strings.HasPrefix(name, "x") {
			continue
		}
		index, err := strconv.Atoi(name[1:])
		if err != nil || index < 0 || index >= variables {
			return statusUnknown, nil, fmt.Errorf("unknown variable in cbc solution: %v", name)
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return statusUnknown, nil, fmt.Errorf("invalid value in cbc solution row \"%v\": %w", line, err)
		}
		values[index] = value
		found = true
	}

	// CBC writes a "Stopped" header without rows when time ran out before any integer solution
	if status == statusStopped && !found {
		return statusStopped, nil, nil
	}
	return status, values, nil
}
