// Package prompt assembles the per-attempt generation context for one C
// source file: the source text, the stubs its tests will need, and feedback
// distilled from the previous attempt's validation issues.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"ctestgen/internal/cindex"
)

// ErrContextBuild marks a source file that could not be read or analyzed.
// It is fatal for that file only, never for the batch.
var ErrContextBuild = errors.New("context build failed")

// maxFeedbackIssues caps how many prior issues are replayed verbatim; the
// remainder collapses into an overflow count.
const maxFeedbackIssues = 5

// Stub names a symbol the generated tests must stub out, with the file that
// owns its real definition.
type Stub struct {
	Name  string
	Owner string
}

// Context is everything one generation attempt needs. It is immutable once
// built; a new attempt builds a new Context.
type Context struct {
	FilePath  string
	Source    string
	NeedsStub []Stub
	Feedback  []string
}

// Build assembles the Context for a file. The needs-stub set is every
// called-but-undefined symbol that the table resolves to a different file.
// Symbols absent from the table are assumed externally resolved at link
// time and excluded; symbols owned by the file itself need no stub.
func Build(analysis *cindex.FileAnalysis, table cindex.SymbolTable, feedback []string) (*Context, error) {
	if analysis == nil {
		return nil, fmt.Errorf("%w: no analysis", ErrContextBuild)
	}
	source, err := os.ReadFile(analysis.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrContextBuild, analysis.FilePath, err)
	}
	return BuildFromSource(string(source), analysis, table, feedback), nil
}

// BuildFromSource is Build with the source text already in hand.
func BuildFromSource(source string, analysis *cindex.FileAnalysis, table cindex.SymbolTable, feedback []string) *Context {
	var stubs []Stub
	for name := range analysis.CalledSymbols {
		owner := table.Owner(name)
		if owner == "" || owner == analysis.FilePath {
			continue
		}
		if analysis.DefinedFunction(name) {
			continue
		}
		stubs = append(stubs, Stub{Name: name, Owner: owner})
	}
	sort.Slice(stubs, func(i, j int) bool { return stubs[i].Name < stubs[j].Name })

	return &Context{
		FilePath:  analysis.FilePath,
		Source:    source,
		NeedsStub: stubs,
		Feedback:  feedback,
	}
}

// FeedbackSection renders the prior-attempt feedback: "none" on the first
// attempt, otherwise up to maxFeedbackIssues issues verbatim, an overflow
// count, and any targeted corrective instructions the issues match.
func (c *Context) FeedbackSection() string {
	if len(c.Feedback) == 0 {
		return "none"
	}
	var sb strings.Builder
	shown := c.Feedback
	if len(shown) > maxFeedbackIssues {
		shown = shown[:maxFeedbackIssues]
	}
	for _, iss := range shown {
		fmt.Fprintf(&sb, "- %s\n", iss)
	}
	if overflow := len(c.Feedback) - len(shown); overflow > 0 {
		fmt.Fprintf(&sb, "(+%d more)\n", overflow)
	}
	for _, hint := range correctiveHints(c.Feedback) {
		fmt.Fprintf(&sb, "FIX: %s\n", hint)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// correctiveHints maps recurring issue patterns to one targeted
// instruction each.
func correctiveHints(issues []string) []string {
	joined := strings.Join(issues, "\n")
	var hints []string
	if strings.Contains(joined, "temperature literal") {
		hints = append(hints,
			"Keep temperature expectations within the sensor operating range -40.0f to 125.0f.")
	}
	if strings.Contains(joined, "raw counter literal") {
		hints = append(hints,
			"Raw ADC stub values must stay within 0..1023.")
	}
	if strings.Contains(joined, `#include "unity.h"`) {
		hints = append(hints,
			`Begin the file with #include "unity.h".`)
	}
	if strings.Contains(joined, "exact float equality") {
		hints = append(hints,
			"Compare floats with TEST_ASSERT_FLOAT_WITHIN and a tolerance, never TEST_ASSERT_EQUAL_FLOAT.")
	}
	return hints
}

// Render produces the full prompt string handed to the generation backend.
func (c *Context) Render() string {
	var sb strings.Builder
	sb.WriteString("You are an expert embedded C test engineer. Write a complete Unity test file for the C source below.\n\n")

	sb.WriteString("Rules:\n")
	sb.WriteString("1. Include \"unity.h\" and only headers the source itself includes or standard headers.\n")
	sb.WriteString("2. Provide void setUp(void) and void tearDown(void); tearDown must reset any stub state.\n")
	sb.WriteString("3. Name every test function test_<behavior>; cover nominal and boundary cases.\n")
	sb.WriteString("4. Compare floats with TEST_ASSERT_FLOAT_WITHIN, never exact equality.\n")
	sb.WriteString("5. Do not define main beyond the Unity runner, and do not call printf or scanf.\n")
	sb.WriteString("6. Temperature values are plausible only within -40.0f..125.0f; raw ADC counts within 0..1023.\n\n")

	if len(c.NeedsStub) > 0 {
		sb.WriteString("Stub these externally defined functions (do not include their headers):\n")
		for _, s := range c.NeedsStub {
			fmt.Fprintf(&sb, "- %s (defined in %s)\n", s.Name, s.Owner)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Feedback from the previous attempt:\n%s\n\n", c.FeedbackSection())
	fmt.Fprintf(&sb, "Source file %s:\n```c\n%s\n```\n", c.FilePath, strings.TrimRight(c.Source, "\n"))
	sb.WriteString("\nRespond with only the C test file, no commentary.\n")
	return sb.String()
}
