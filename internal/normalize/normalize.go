// Package normalize rewrites raw model output into a self-contained test
// file candidate. The transform is deterministic and idempotent: applying it
// to its own output changes nothing.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultFloatTolerance replaces exact float equality assertions.
const DefaultFloatTolerance = "0.01f"

// FrameworkHeader is the test-framework include every candidate must carry.
// The normalizer never inserts it; a missing include is a validator finding.
const FrameworkHeader = "unity.h"

// standardHeaders are always allowed through the include filter.
var standardHeaders = map[string]struct{}{
	"stdio.h": {}, "stdlib.h": {}, "string.h": {}, "math.h": {},
	"assert.h": {}, "ctype.h": {}, "errno.h": {}, "limits.h": {},
	"stdarg.h": {}, "stddef.h": {}, "stdint.h": {}, "stdbool.h": {},
	"time.h": {}, "float.h": {},
}

var (
	fenceRe          = regexp.MustCompile("(?m)^```[a-zA-Z]*[ \t]*$\n?")
	equalFloatRe     = regexp.MustCompile(`TEST_ASSERT_EQUAL_FLOAT\s*\(\s*([^,]+?)\s*,\s*([^)]+?)\s*\)`)
	includeRe        = regexp.MustCompile(`^\s*#\s*include\s+["<]([^">]+)[">]`)
	absoluteZeroRe   = regexp.MustCompile(`-273\.15f?\b`)
	hugeMagnitudeRe  = regexp.MustCompile(`\b1e10\d*f?\b`)
	randStubClampRe  = regexp.MustCompile(`((?:\w*rand\w*)\.return_value\s*=\s*)(\d+)(\s*;)`)
	consoleIORe      = regexp.MustCompile(`(?m)^\s*(?:printf|scanf|puts|putchar|getchar)\s*\([^;]*\)\s*;[ \t]*\n?`)
	mainCallRe       = regexp.MustCompile(`(?m)^\s*(?:\w[\w\s*]*=\s*)?main\s*\(\s*\)\s*;[ \t]*\n?`)
	externMainRe     = regexp.MustCompile(`extern\s+int\s+main\s*\(\s*void\s*\)\s*;`)
	testFuncRe       = regexp.MustCompile(`void\s+(test_\w+)\s*\(`)
	mainDefStartRe   = regexp.MustCompile(`(?m)^\s*int\s+main\s*\([^)]*\)\s*\{`)
	trailingBlanksRe = regexp.MustCompile(`\n{3,}`)
)

// Macro spellings the model invents for Unity comparison assertions, mapped
// to the canonical forms.
var macroSpellings = []struct{ from, to string }{
	{"TEST_ASSERT_GREATER_THAN_EQUAL_INT", "TEST_ASSERT_GREATER_OR_EQUAL_INT"},
	{"TEST_ASSERT_LESS_THAN_EQUAL_INT", "TEST_ASSERT_LESS_OR_EQUAL_INT"},
	{"TEST_ASSERT_GREATER_THAN_EQUAL", "TEST_ASSERT_GREATER_OR_EQUAL"},
	{"TEST_ASSERT_LESS_THAN_EQUAL", "TEST_ASSERT_LESS_OR_EQUAL"},
}

// rawCounterBound is the inclusive upper bound for raw ADC counter stubs
// (rand() % 1024 in the sources this tool targets).
const rawCounterBound = 1023

// Normalize applies the full rewrite pipeline. sourceIncludes are the headers
// the subject source file itself includes; generated includes outside that
// set (plus the framework header and standard headers) are dropped.
func Normalize(text string, sourceIncludes []string) string {
	text = stripFences(text)
	text = rewriteFloatAssertions(text)
	text = canonicalizeMacros(text)
	text = clampBoundedLiterals(text)
	text = stripEntryPoint(text)
	text = stripConsoleIO(text)
	text = filterIncludes(text, sourceIncludes)
	text = ensureRunner(text)
	text = trailingBlanksRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text) + "\n"
}

// Safe runs Normalize but returns the input unchanged if the rewrite
// panics. A normalization fault must never abort the attempt.
func Safe(text string, sourceIncludes []string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = text
		}
	}()
	return Normalize(text, sourceIncludes)
}

func stripFences(text string) string {
	return fenceRe.ReplaceAllString(text, "")
}

func rewriteFloatAssertions(text string) string {
	return equalFloatRe.ReplaceAllString(text,
		"TEST_ASSERT_FLOAT_WITHIN("+DefaultFloatTolerance+", $1, $2)")
}

func canonicalizeMacros(text string) string {
	for _, m := range macroSpellings {
		text = strings.ReplaceAll(text, m.from, m.to)
	}
	return text
}

func clampBoundedLiterals(text string) string {
	// Absolute zero is below any sensor's domain floor.
	text = absoluteZeroRe.ReplaceAllString(text, "-40.0f")
	text = hugeMagnitudeRe.ReplaceAllString(text, "1000.0f")

	// Raw counter stubs are bounded 0..1023; clamp overshoots to the bound.
	text = randStubClampRe.ReplaceAllStringFunc(text, func(match string) string {
		sub := randStubClampRe.FindStringSubmatch(match)
		n, err := strconv.Atoi(sub[2])
		if err != nil || n <= rawCounterBound {
			return match
		}
		return sub[1] + strconv.Itoa(rawCounterBound) + sub[3]
	})
	return text
}

// stripEntryPoint removes embedded definitions of the program entry point and,
// unless an explicit external declaration is present, bare invocations of it.
// The Unity runner main (the aggregator calling RUN_TEST/UNITY_BEGIN) is the
// test program's own entry and is preserved.
func stripEntryPoint(text string) string {
	for {
		loc := findNonRunnerMain(text)
		if loc == nil {
			break
		}
		text = text[:loc[0]] + text[loc[1]:]
	}
	if !externMainRe.MatchString(text) {
		text = mainCallRe.ReplaceAllString(text, "")
	}
	return text
}

// findNonRunnerMain locates the next main definition that is not the Unity
// runner, returning its [start, end) byte range including the body.
func findNonRunnerMain(text string) []int {
	offset := 0
	for {
		loc := mainDefStartRe.FindStringIndex(text[offset:])
		if loc == nil {
			return nil
		}
		start := offset + loc[0]
		bodyOpen := offset + loc[1] - 1
		end := matchBrace(text, bodyOpen)
		if end < 0 {
			return nil
		}
		body := text[bodyOpen:end]
		if strings.Contains(body, "UNITY_BEGIN") || strings.Contains(body, "RUN_TEST") {
			offset = end
			continue
		}
		return []int{start, end}
	}
}

// matchBrace returns the index one past the brace matching text[open].
func matchBrace(text string, open int) int {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

func stripConsoleIO(text string) string {
	return consoleIORe.ReplaceAllString(text, "")
}

// filterIncludes keeps only the framework header, headers the subject source
// itself includes, and recognized standard headers.
func filterIncludes(text string, sourceIncludes []string) string {
	allowed := make(map[string]struct{}, len(sourceIncludes)+1)
	allowed[FrameworkHeader] = struct{}{}
	for _, inc := range sourceIncludes {
		allowed[inc] = struct{}{}
	}

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if m := includeRe.FindStringSubmatch(line); m != nil {
			header := m[1]
			_, own := allowed[header]
			_, std := standardHeaders[header]
			if !own && !std {
				continue
			}
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// ensureRunner appends a Unity runner invoking every discovered test function
// when the text has none. Discovery order is source order.
func ensureRunner(text string) string {
	if strings.Contains(text, "UNITY_BEGIN") {
		return text
	}
	var names []string
	seen := make(map[string]struct{})
	for _, m := range testFuncRe.FindAllStringSubmatch(text, -1) {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	if len(names) == 0 {
		return text
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(text, "\n"))
	sb.WriteString("\n\nint main(void) {\n    UNITY_BEGIN();\n\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "    RUN_TEST(%s);\n", name)
	}
	sb.WriteString("\n    return UNITY_END();\n}\n")
	return sb.String()
}
