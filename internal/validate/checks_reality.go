package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Reality checks: assertions and literals that no physically plausible run
// of the subject code could satisfy.

// Recognized bounded quantities. Temperature follows the sensor domain the
// subject sources model; the raw counter is the ADC sample range.
const (
	temperatureMin = -40.0
	temperatureMax = 125.0
	rawCounterMin  = 0
	rawCounterMax  = 1023
)

var (
	exactFloatEqRe  = regexp.MustCompile(`TEST_ASSERT_EQUAL_FLOAT\s*\(`)
	absoluteFloorRe = regexp.MustCompile(`-273(?:\.1[0-9]*)?\b`)
	hugeLiteralRe   = regexp.MustCompile(`\b\d+(?:\.\d+)?e(?:\+)?\d{2,}\b|\b1e10\d*\b`)

	temperatureVocabRe = regexp.MustCompile(`(?i)temp|celsius|deg_?c`)
	rawVocabRe         = regexp.MustCompile(`(?i)\braw\b|adc|counter|rand|return_value|\bidx\b|index`)

	// A literal not embedded in an identifier or a longer number.
	numericLiteralRe = regexp.MustCompile(`(^|[^\w.])(-?\d+(?:\.\d+)?)f?\b`)
)

func registerRealityChecks(r *Registry) {
	r.Register(Check{"float-equality", checkFloatEquality})
	r.Register(Check{"impossible-literals", checkImpossibleLiterals})
	r.Register(Check{"temperature-domain", checkTemperatureDomain})
	r.Register(Check{"raw-counter-domain", checkRawCounterDomain})
}

func checkFloatEquality(in Input) Finding {
	if exactFloatEqRe.MatchString(in.Test) {
		return realismIssue("exact float equality assertion; use TEST_ASSERT_FLOAT_WITHIN")
	}
	return Finding{}
}

func checkImpossibleLiterals(in Input) Finding {
	var f Finding
	if absoluteFloorRe.MatchString(in.Test) {
		f.Issues = append(f.Issues,
			"literal near absolute zero is below any sensor's physical floor")
		f.Unrealistic = true
	}
	if hugeLiteralRe.MatchString(in.Test) {
		f.Issues = append(f.Issues, "implausibly large magnitude literal")
		f.Unrealistic = true
	}
	return f
}

// checkTemperatureDomain flags temperature-context literals outside
// [-40, 125]. Lines whose context indicates a raw counter or stub index are
// excluded: wide-range values there are legitimate.
func checkTemperatureDomain(in Input) Finding {
	var f Finding
	for _, line := range strings.Split(in.Test, "\n") {
		if !temperatureVocabRe.MatchString(line) || rawVocabRe.MatchString(line) {
			continue
		}
		for _, v := range literalsOn(line) {
			if v < temperatureMin || v > temperatureMax {
				f.Issues = append(f.Issues, fmt.Sprintf(
					"temperature literal %g outside plausible range [%g, %g]",
					v, temperatureMin, temperatureMax))
				f.Unrealistic = true
			}
		}
	}
	return f
}

func checkRawCounterDomain(in Input) Finding {
	var f Finding
	for _, line := range strings.Split(in.Test, "\n") {
		if !rawVocabRe.MatchString(line) {
			continue
		}
		for _, v := range literalsOn(line) {
			if v != float64(int64(v)) {
				continue
			}
			if v < rawCounterMin || v > rawCounterMax {
				f.Issues = append(f.Issues, fmt.Sprintf(
					"raw counter literal %d outside [%d, %d]",
					int64(v), rawCounterMin, rawCounterMax))
				f.Unrealistic = true
			}
		}
	}
	return f
}

func literalsOn(line string) []float64 {
	var out []float64
	for _, m := range numericLiteralRe.FindAllStringSubmatch(line, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
