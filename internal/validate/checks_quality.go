package validate

import (
	"fmt"
	"regexp"
	"strconv"
)

// Quality heuristics and logical-consistency checks. These rarely break
// the build; they keep weak-but-compiling candidates out of the High tier.

var (
	testFuncNameRe  = regexp.MustCompile(`void\s+(test_\w+)\s*\(`)
	boundaryVocabRe = regexp.MustCompile(`(?i)boundary|edge|limit|\bmin\b|\bmax\b|_min|_max|overflow`)
	stubStateRe     = regexp.MustCompile(`\.(?:return_value|call_count)\b`)
	teardownRe      = regexp.MustCompile(`void\s+tearDown\s*\(`)
	resetVocabRe    = regexp.MustCompile(`(?i)reset|memset|= 0|=0`)

	assertTrueRe  = regexp.MustCompile(`TEST_ASSERT_TRUE\s*\(\s*([^)]+?)\s*\)`)
	assertFalseRe = regexp.MustCompile(`TEST_ASSERT_FALSE\s*\(\s*([^)]+?)\s*\)`)
	eqIntRe       = regexp.MustCompile(`TEST_ASSERT_EQUAL_INT\s*\(\s*(-?\d+)\s*,\s*(-?\d+)\s*\)`)
)

// implausibleDelta is the integer-equality operand gap beyond which the
// assertion is assumed to be a typo rather than intent.
const implausibleDelta = 1_000_000

func registerQualityChecks(r *Registry) {
	r.Register(Check{"has-tests", checkHasTests})
	r.Register(Check{"boundary-coverage", checkBoundaryCoverage})
	r.Register(Check{"teardown-reset", checkTeardownReset})
}

func registerConsistencyChecks(r *Registry) {
	r.Register(Check{"contradictory-assertions", checkContradictoryAssertions})
	r.Register(Check{"implausible-equality", checkImplausibleEquality})
}

func checkHasTests(in Input) Finding {
	if len(testFuncNameRe.FindAllString(in.Test, -1)) == 0 {
		return buildIssue("no test functions found (expected at least one void test_*(void))")
	}
	return Finding{}
}

func checkBoundaryCoverage(in Input) Finding {
	names := testFuncNameRe.FindAllStringSubmatch(in.Test, -1)
	if len(names) <= 1 {
		return Finding{}
	}
	if !boundaryVocabRe.MatchString(in.Test) {
		return issue("multiple tests but none exercises a boundary or edge case")
	}
	return Finding{}
}

// checkTeardownReset verifies that when stub state exists, tearDown puts it
// back, directly or through a named reset helper.
func checkTeardownReset(in Input) Finding {
	if !stubStateRe.MatchString(in.Test) {
		return Finding{}
	}
	loc := teardownRe.FindStringIndex(in.Test)
	if loc == nil {
		return issue("stateful stubs present but no tearDown to reset them")
	}
	body := firstBody(in.Test[loc[0]:])
	if !resetVocabRe.MatchString(body) {
		return issue("tearDown does not reset stub state")
	}
	return Finding{}
}

func checkContradictoryAssertions(in Input) Finding {
	var f Finding
	for _, body := range testBodies(in.Test) {
		asTrue := make(map[string]struct{})
		for _, m := range assertTrueRe.FindAllStringSubmatch(body.text, -1) {
			asTrue[collapseSpaces(m[1])] = struct{}{}
		}
		for _, m := range assertFalseRe.FindAllStringSubmatch(body.text, -1) {
			expr := collapseSpaces(m[1])
			if _, both := asTrue[expr]; both {
				f.Issues = append(f.Issues, fmt.Sprintf(
					"%s asserts %q both true and false", body.name, expr))
			}
		}
	}
	return f
}

func checkImplausibleEquality(in Input) Finding {
	var f Finding
	for _, m := range eqIntRe.FindAllStringSubmatch(in.Test, -1) {
		a, errA := strconv.ParseInt(m[1], 10, 64)
		b, errB := strconv.ParseInt(m[2], 10, 64)
		if errA != nil || errB != nil {
			continue
		}
		delta := a - b
		if delta < 0 {
			delta = -delta
		}
		if delta > implausibleDelta {
			f.Issues = append(f.Issues, fmt.Sprintf(
				"integer equality of literals %d and %d can never hold", a, b))
		}
	}
	return f
}

type testBody struct {
	name string
	text string
}

// testBodies extracts each test function's brace-delimited body.
func testBodies(text string) []testBody {
	var out []testBody
	for _, loc := range testFuncNameRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[loc[2]:loc[3]]
		body := firstBody(text[loc[0]:])
		if body == "" {
			continue
		}
		out = append(out, testBody{name: name, text: body})
	}
	return out
}
