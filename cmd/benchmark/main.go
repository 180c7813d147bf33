package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/limaJavier/academicplan/pkg/model"

	"github.com/samber/lo"
)

const (
	executablePath         = "../../bin/academicplan"
	MB             float32 = 1024 * 1024
)

type SolverType int

const (
	pseudoboolean SolverType = iota
	cbc
)

type ResultType int

const (
	solved ResultType = iota
	infeasible
	timeout
)

var (
	solverTypes = map[SolverType]string{
		pseudoboolean: "pseudoboolean",
		cbc:           "cbc",
	}
	resultTypes = map[ResultType]string{
		solved:     "solved",
		infeasible: "infeasible",
		timeout:    "timeout",
	}
	exitCodes = map[int]ResultType{
		10: solved,
		20: infeasible,
		30: timeout,
	}
)

type TestMetadata struct {
	Name         string
	Seed         uint64
	Courses      int
	Requirements int
}

type BenchmarkResult struct {
	Solver        SolverType
	Test          TestMetadata
	Duration      int64
	Memory        float32
	CpuPercentage int64
	Result        ResultType
}

// Generated catalogs are written with the same keys InputFromFile decodes
type generatedInput struct {
	Catalog      []model.Course
	Requirements []model.Requirement
}

func main() {
	sizesPtr := flag.String("sizes", "10,20,40", "Comma-separated catalog sizes to generate")
	seedsPtr := flag.Int("seeds", 3, "Amount of catalogs generated per size")
	timeoutPtr := flag.String("timeout", "60s", "Solver budget handed to every run")
	outPtr := flag.String("out", "benchmark_results.csv", "Path of the CSV report")
	flag.Parse()

	sizes := lo.Map(strings.Split(*sizesPtr, ","), func(size string, _ int) int {
		return lo.Must(strconv.Atoi(strings.TrimSpace(size)))
	})

	directory, err := os.MkdirTemp("", "academicplan-benchmark-*")
	if err != nil {
		log.Fatalf("cannot create test directory: %v", err)
	}
	defer os.RemoveAll(directory)

	tests := generateTests(directory, sizes, *seedsPtr)
	solvers := getSolvers()
	results := make([]BenchmarkResult, 0, len(tests)*len(solvers))

	for _, test := range tests {
		for _, solver := range solvers {
			fmt.Printf("Benchmarking test \"%v\" (%v courses, %v requirements) with solver \"%v\"\n", test.Name, test.Courses, test.Requirements, solverTypes[solver])

			duration, maxMemory, cpuPercentage, result := measure(solver, test.Name, *timeoutPtr)

			results = append(results, BenchmarkResult{
				Solver:        solver,
				Test:          test,
				Duration:      duration,
				Memory:        maxMemory,
				CpuPercentage: cpuPercentage,
				Result:        result,
			})
		}
	}

	toCsv(*outPtr, results)
}

func generateTests(directory string, sizes []int, seeds int) []TestMetadata {
	tests := make([]TestMetadata, 0, len(sizes)*seeds)
	for _, size := range sizes {
		requirements := max(1, size/8)
		for seed := range uint64(seeds) {
			input, err := model.GenerateInput(size, requirements, seed)
			if err != nil {
				log.Fatalf("cannot generate input: %v", err)
			}

			content, err := json.Marshal(generatedInput{Catalog: input.Catalog, Requirements: input.Requirements})
			if err != nil {
				log.Fatalf("cannot marshal generated input: %v", err)
			}
			filename := filepath.Join(directory, fmt.Sprintf("catalog_%d_%d.json", size, seed))
			if err := os.WriteFile(filename, content, 0666); err != nil {
				log.Fatalf("cannot write generated input: %v", err)
			}

			tests = append(tests, TestMetadata{
				Name:         filename,
				Seed:         seed,
				Courses:      len(input.Catalog),
				Requirements: len(input.Requirements),
			})
		}
	}
	return tests
}

func getSolvers() []SolverType {
	solvers := []SolverType{pseudoboolean}
	if _, err := exec.LookPath("cbc"); err == nil {
		solvers = append(solvers, cbc)
	}
	return solvers
}

func measure(solver SolverType, testFile, timeout string) (duration int64, maxMemory float32, cpuPercentage int64, result ResultType) {
	cmd := exec.Command("/usr/bin/time", "-v", executablePath, "-solver", solverTypes[solver], "-timeout", timeout, "-file", testFile, "-log-level", "error")

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	cmd.Run()
	result, ok := exitCodes[cmd.ProcessState.ExitCode()]
	if !ok {
		log.Fatalf("an error occurred during the execution of \"academicplan\" at test \"%v\" using solver \"%v\": %v\n", testFile, solverTypes[solver], stdErr.String())
	}

	splits := strings.Split(stdErr.String(), "\n")
	getLine := func(substr string) string {
		line, ok := lo.Find(splits, func(line string) bool {
			return strings.Contains(strings.ToLower(line), substr)
		})
		if !ok {
			log.Fatalf("Substring \"%v\" could not be found", substr)
		}
		return line
	}

	duration = parseDurationLine(getLine("wall clock"))
	maxMemory = parseMemoryLine(getLine("maximum resident set size"))
	cpuPercentage = parseCpuPercentageLine(getLine("percent of cpu"))

	return duration, maxMemory, cpuPercentage, result
}

func toCsv(path string, results []BenchmarkResult) {
	file, err := os.Create(path)
	if err != nil {
		log.Panicf("cannot create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Solver", "Test", "Seed", "Courses", "Requirements", "Duration(ms)", "Memory(MB)", "CPU(%)", "Result"}
	if err := writer.Write(header); err != nil {
		log.Panicf("cannot write CSV header: %v", err)
	}

	for _, result := range results {
		record := []string{
			solverTypes[result.Solver],
			filepath.Base(result.Test.Name),
			fmt.Sprintf("%d", result.Test.Seed),
			fmt.Sprintf("%d", result.Test.Courses),
			fmt.Sprintf("%d", result.Test.Requirements),
			fmt.Sprintf("%d", result.Duration),
			fmt.Sprintf("%.1f", result.Memory),
			fmt.Sprintf("%d", result.CpuPercentage),
			resultTypes[result.Result],
		}
		if err := writer.Write(record); err != nil {
			log.Panicf("cannot write CSV record: %v", err)
		}
	}
}

func parseDurationLine(line string) int64 {
	durationStr := strings.Split(line, "(h:mm:ss or m:ss):")[1][1:]
	return parseDuration(durationStr)
}

// parseDuration converts "h:mm:ss.cc" or "m:ss.cc" into milliseconds
func parseDuration(durationStr string) int64 {
	parts := strings.Split(strings.TrimSpace(durationStr), ":")
	secondsParts := strings.Split(parts[len(parts)-1], ".")
	seconds := lo.Must(strconv.Atoi(secondsParts[0]))
	hundredths := 0
	if len(secondsParts) > 1 {
		hundredths = lo.Must(strconv.Atoi(secondsParts[1]))
	}

	minutes, hours := 0, 0
	switch len(parts) {
	case 3:
		hours = lo.Must(strconv.Atoi(parts[0]))
		minutes = lo.Must(strconv.Atoi(parts[1]))
	case 2:
		minutes = lo.Must(strconv.Atoi(parts[0]))
	default:
		log.Fatalf("unexpected duration format: %v", durationStr)
	}
	return int64(hours*3600+minutes*60+seconds)*1000 + int64(hundredths*10)
}

// parseMemoryLine reads the resident set size, reported in kilobytes, as megabytes
func parseMemoryLine(line string) float32 {
	memoryStr := strings.TrimSpace(strings.Split(line, ":")[1])
	return float32(lo.Must(strconv.ParseFloat(memoryStr, 32))) * 1024 / MB
}

func parseCpuPercentageLine(line string) int64 {
	percentageStr := strings.TrimSuffix(strings.TrimSpace(strings.Split(line, ":")[1]), "%")
	return int64(lo.Must(strconv.Atoi(percentageStr)))
}
