package main

import (
	"testing"

	"github.com/limaJavier/academicplan/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	assert.Equal(t, int64(60*1000+1000+120), parseDuration("00:01:01.12"))
	assert.Equal(t, int64(60*60*1000+60*1000+1000+120), parseDuration("01:01:01.12"))
	assert.Equal(t, int64(60*1000+1000+120), parseDuration("1:01.12"))
	assert.Equal(t, int64(120), parseDuration("0:00.12"))
	assert.Equal(t, int64(2000), parseDuration("0:02"))
}

func TestParseTimeLines(t *testing.T) {
	assert.Equal(t, int64(1500), parseDurationLine("\tElapsed (wall clock) time (h:mm:ss or m:ss): 0:01.50"))
	assert.InDelta(t, 50.0, parseMemoryLine("\tMaximum resident set size (kbytes): 51200"), 0.01)
	assert.Equal(t, int64(97), parseCpuPercentageLine("\tPercent of CPU this job got: 97%"))
}

func TestGeneratedTestsAreReadable(t *testing.T) {
	// Arrange
	directory := t.TempDir()

	// Act
	tests := generateTests(directory, []int{8, 16}, 2)

	// Assert
	require.Len(t, tests, 4)
	for _, test := range tests {
		input, err := model.InputFromFile(test.Name)
		require.Nil(t, err, test.Name)
		assert.Len(t, input.Catalog, test.Courses)
		assert.Len(t, input.Requirements, test.Requirements)
	}
	assert.Equal(t, 2, tests[2].Requirements) // 16 courses get two requirements
}
