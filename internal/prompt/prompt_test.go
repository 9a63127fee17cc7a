package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctestgen/internal/cindex"
)

func sensorAnalysis() *cindex.FileAnalysis {
	return &cindex.FileAnalysis{
		FilePath: "src/sensor.c",
		Functions: []cindex.CFunction{
			{Name: "get_temperature_celsius", ReturnType: "float", Signature: "float get_temperature_celsius(void)"},
			{Name: "read_temperature_raw", ReturnType: "int", Signature: "int read_temperature_raw(void)"},
		},
		CalledSymbols: map[string]struct{}{
			"read_temperature_raw": {}, // defined here, no stub
			"log_status":           {}, // owned by logger.c, needs stub
			"rand":                 {}, // not indexed, link-time
		},
		Includes: []string{"stdlib.h", "sensor.h"},
	}
}

func sensorTable() cindex.SymbolTable {
	return cindex.NewSymbolTable(map[string]string{
		"get_temperature_celsius": "src/sensor.c",
		"read_temperature_raw":    "src/sensor.c",
		"log_status":              "src/logger.c",
	})
}

func TestBuildFromSource_NeedsStub(t *testing.T) {
	ctx := BuildFromSource("/* src */", sensorAnalysis(), sensorTable(), nil)
	require.Len(t, ctx.NeedsStub, 1)
	assert.Equal(t, "log_status", ctx.NeedsStub[0].Name)
	assert.Equal(t, "src/logger.c", ctx.NeedsStub[0].Owner)
}

func TestFeedbackSection_FirstAttempt(t *testing.T) {
	ctx := BuildFromSource("", sensorAnalysis(), sensorTable(), nil)
	assert.Equal(t, "none", ctx.FeedbackSection())
}

func TestFeedbackSection_VerbatimWithOverflow(t *testing.T) {
	var issues []string
	for i := 0; i < 8; i++ {
		issues = append(issues, fmt.Sprintf("issue %d", i))
	}
	ctx := BuildFromSource("", sensorAnalysis(), sensorTable(), issues)
	section := ctx.FeedbackSection()

	for i := 0; i < 5; i++ {
		assert.Contains(t, section, fmt.Sprintf("- issue %d", i))
	}
	assert.NotContains(t, section, "issue 5")
	assert.Contains(t, section, "(+3 more)")
}

func TestFeedbackSection_NoOverflowAtExactlyFive(t *testing.T) {
	issues := []string{"a", "b", "c", "d", "e"}
	section := BuildFromSource("", sensorAnalysis(), sensorTable(), issues).FeedbackSection()
	assert.NotContains(t, section, "more)")
}

func TestFeedbackSection_CorrectiveHints(t *testing.T) {
	issues := []string{
		"temperature literal 130 outside plausible range [-40, 125]",
		"raw counter literal 4096 outside [0, 1023]",
		`missing required #include "unity.h"`,
	}
	section := BuildFromSource("", sensorAnalysis(), sensorTable(), issues).FeedbackSection()
	assert.Contains(t, section, "FIX: Keep temperature expectations")
	assert.Contains(t, section, "FIX: Raw ADC stub values")
	assert.Contains(t, section, `FIX: Begin the file with #include "unity.h".`)
}

func TestRender(t *testing.T) {
	src := "float get_temperature_celsius(void) { return 25.0f; }\n"
	ctx := BuildFromSource(src, sensorAnalysis(), sensorTable(), []string{"exact float equality assertion; use TEST_ASSERT_FLOAT_WITHIN"})
	out := ctx.Render()

	assert.Contains(t, out, "Unity test file")
	assert.Contains(t, out, "- log_status (defined in src/logger.c)")
	assert.Contains(t, out, "- exact float equality assertion")
	assert.Contains(t, out, "FIX: Compare floats with TEST_ASSERT_FLOAT_WITHIN")
	assert.Contains(t, out, strings.TrimRight(src, "\n"))
	assert.Contains(t, out, "Source file src/sensor.c:")
}

func TestBuild_UnreadableSource(t *testing.T) {
	analysis := sensorAnalysis()
	analysis.FilePath = "does/not/exist.c"
	_, err := Build(analysis, sensorTable(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContextBuild)
}
