package regen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ctestgen/internal/cindex"
	"ctestgen/internal/gen"
	"ctestgen/internal/validate"
)

// scriptedGenerator returns canned outputs in order, capturing prompts.
type scriptedGenerator struct {
	outputs []string
	errs    []error
	prompts []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	i := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i >= len(g.outputs) {
		i = len(g.outputs) - 1
	}
	return g.outputs[i], nil
}

// fixedAnalyzer hands out a prebuilt analysis.
type fixedAnalyzer struct {
	analysis cindex.FileAnalysis
	err      error
}

func (a fixedAnalyzer) AnalyzeFileDependencies(file string) (cindex.FileAnalysis, error) {
	if a.err != nil {
		return cindex.FileAnalysis{}, a.err
	}
	return a.analysis, nil
}

const controllerSource = `#include "sensor.h"

float get_temperature_celsius(void) {
    return convert(read_temperature_raw());
}

int read_temperature_raw(void) {
    return sample_adc();
}
`

const lowCandidate = `#include "sensor.h"

void setUp(void) {}
void tearDown(void) {}

void test_temperature_nominal(void) {
    TEST_ASSERT_FLOAT_WITHIN(0.01f, 25.0f, get_temperature_celsius());
}

int main(void) {
    UNITY_BEGIN();
    RUN_TEST(test_temperature_nominal);
    return UNITY_END();
}
`

const highCandidate = `#include "unity.h"
#include "sensor.h"

void setUp(void) {}
void tearDown(void) {}

void test_temperature_nominal(void) {
    TEST_ASSERT_FLOAT_WITHIN(0.01f, 25.0f, get_temperature_celsius());
}

void test_temperature_upper_limit(void) {
    TEST_ASSERT_FLOAT_WITHIN(0.01f, 125.0f, get_temperature_celsius());
}

int main(void) {
    UNITY_BEGIN();
    RUN_TEST(test_temperature_nominal);
    RUN_TEST(test_temperature_upper_limit);
    return UNITY_END();
}
`

func writeFixture(t *testing.T) cindex.FileAnalysis {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sensor.c")
	require.NoError(t, os.WriteFile(path, []byte(controllerSource), 0o644))
	return cindex.FileAnalysis{
		FilePath: path,
		Functions: []cindex.CFunction{
			{Name: "get_temperature_celsius", ReturnType: "float", Signature: "float get_temperature_celsius(void)"},
			{Name: "read_temperature_raw", ReturnType: "int", Signature: "int read_temperature_raw(void)"},
		},
		CalledSymbols: map[string]struct{}{
			"read_temperature_raw": {},
			"convert":              {},
			"sample_adc":           {},
		},
		Includes: []string{"sensor.h"},
	}
}

func testController(t *testing.T, cfg Config, g Generator, analysis cindex.FileAnalysis) *Controller {
	t.Helper()
	table := cindex.NewSymbolTable(map[string]string{
		"get_temperature_celsius": analysis.FilePath,
		"read_temperature_raw":    analysis.FilePath,
		"convert":                 "conversion.c",
	})
	return NewController(cfg, g, fixedAnalyzer{analysis: analysis},
		validate.DefaultRegistry(zap.NewNop()), table, zap.NewNop())
}

func TestTransition(t *testing.T) {
	low := validate.Report{Quality: validate.TierLow, Issues: []string{"x", "y", "z"}}
	high := validate.Report{Quality: validate.TierHigh, Compiles: true, Realistic: true, Issues: []string{}}

	tests := []struct {
		name      string
		report    validate.Report
		attempt   int
		max       int
		autoRegen bool
		want      State
	}{
		{"meets threshold", high, 1, 3, true, StateAccepted},
		{"below threshold with budget left", low, 1, 3, true, StateRegenerating},
		{"budget spent keeps last artifact", low, 3, 3, true, StateAccepted},
		{"regeneration disabled", low, 1, 3, false, StateAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transition(tt.report, tt.attempt, tt.max, validate.TierHigh, tt.autoRegen)
			assert.Equal(t, tt.want, got)
		})
	}
}

// The full loop: needs-stub resolution, a first attempt rejected for a
// missing framework include, a corrected second attempt accepted High.
func TestController_EndToEnd(t *testing.T) {
	analysis := writeFixture(t)
	g := &scriptedGenerator{outputs: []string{lowCandidate, highCandidate}}
	c := testController(t, Config{MaxAttempts: 3, Threshold: validate.TierHigh, AutoRegenerate: true}, g, analysis)

	res, err := c.ProcessFile(context.Background(), analysis.FilePath)
	require.NoError(t, err)

	// Exactly one external symbol needs a stub.
	require.NotEmpty(t, g.prompts)
	assert.Contains(t, g.prompts[0], "- convert (defined in conversion.c)")
	assert.NotContains(t, g.prompts[0], "- sample_adc")
	assert.NotContains(t, g.prompts[0], "- read_temperature_raw")

	assert.Equal(t, StateAccepted, res.State)
	assert.Equal(t, 2, res.Attempts)
	assert.True(t, res.Report.Compiles)
	assert.True(t, res.Report.Realistic)
	assert.Empty(t, res.Report.Issues)
	assert.Equal(t, validate.TierHigh, res.Report.Quality)

	// The second prompt replays the first attempt's issues.
	assert.Contains(t, g.prompts[1], `missing required #include "unity.h"`)

	snap := c.Stats.Snapshot()
	assert.Equal(t, int64(2), snap.AttemptsIssued)
	assert.Equal(t, int64(1), snap.SuccessfulRegenerations)
	assert.Equal(t, int64(1), snap.FilesAccepted)
}

func TestController_BoundedAttempts(t *testing.T) {
	analysis := writeFixture(t)
	g := &scriptedGenerator{outputs: []string{lowCandidate}}
	c := testController(t, Config{MaxAttempts: 4, Threshold: validate.TierHigh, AutoRegenerate: true}, g, analysis)

	res, err := c.ProcessFile(context.Background(), analysis.FilePath)
	require.NoError(t, err)

	assert.Equal(t, 4, len(g.prompts), "at most MaxAttempts generation cycles")
	assert.Equal(t, StateAccepted, res.State)
	assert.Equal(t, 4, res.Attempts)
	// The sub-threshold final artifact is retained and reported.
	assert.NotEmpty(t, res.Output)
	assert.Equal(t, validate.TierLow, res.Report.Quality)
	assert.Equal(t, int64(1), c.Stats.FilesBelowThreshold.Load())
	assert.Equal(t, int64(0), c.Stats.SuccessfulRegenerations.Load())
}

func TestController_GenerationErrorExhausts(t *testing.T) {
	analysis := writeFixture(t)
	g := &scriptedGenerator{
		outputs: []string{""},
		errs:    []error{gen.ErrBackendsExhausted},
	}
	c := testController(t, Config{MaxAttempts: 3, Threshold: validate.TierMedium, AutoRegenerate: true}, g, analysis)

	res, err := c.ProcessFile(context.Background(), analysis.FilePath)
	require.NoError(t, err, "per-file failures never abort the batch")
	assert.Equal(t, StateExhausted, res.State)
	assert.True(t, res.Failed())
	assert.ErrorIs(t, res.Err, gen.ErrBackendsExhausted)
	assert.Equal(t, 1, len(g.prompts), "no regeneration after a generation-layer failure")
	assert.Equal(t, int64(1), c.Stats.FilesFailed.Load())
}

func TestController_AnalyzerErrorContained(t *testing.T) {
	g := &scriptedGenerator{outputs: []string{highCandidate}}
	c := NewController(Config{MaxAttempts: 2, Threshold: validate.TierMedium, AutoRegenerate: true},
		g, fixedAnalyzer{err: errors.New("parse failed")},
		validate.DefaultRegistry(zap.NewNop()), cindex.NewSymbolTable(nil), zap.NewNop())

	res, err := c.ProcessFile(context.Background(), "broken.c")
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, res.State)
	assert.Empty(t, g.prompts)
}

func TestController_ProcessAllContinuesPastFailures(t *testing.T) {
	analysis := writeFixture(t)
	g := &scriptedGenerator{
		outputs: []string{"", highCandidate},
		errs:    []error{gen.ErrBackendsExhausted, nil},
	}
	c := testController(t, Config{MaxAttempts: 1, Threshold: validate.TierMedium, AutoRegenerate: true}, g, analysis)

	results, err := c.ProcessAll(context.Background(), []string{analysis.FilePath, analysis.FilePath})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Failed())
	assert.False(t, results[1].Failed())
}

func TestController_CancelAbortsRun(t *testing.T) {
	analysis := writeFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := &scriptedGenerator{outputs: []string{highCandidate}}
	c := testController(t, Config{MaxAttempts: 1, Threshold: validate.TierLow, AutoRegenerate: true}, g, analysis)

	_, err := c.ProcessFile(ctx, analysis.FilePath)
	assert.ErrorIs(t, err, context.Canceled)
}
