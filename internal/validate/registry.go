// Package validate statically inspects a normalized candidate test file
// against facts extracted from its subject source. Checks are independent
// pure functions registered by name; the registry folds their findings into
// a single Report with an ordinal quality tier.
package validate

import (
	"fmt"

	"go.uber.org/zap"

	"ctestgen/internal/cindex"
)

// Input is the material every check inspects. Test is the normalized
// candidate, Source the subject C file's text, Analysis its indexed facts.
type Input struct {
	Test     string
	Source   string
	Analysis *cindex.FileAnalysis
}

// Finding is one check's contribution to the report. Flags only ever
// downgrade: a check can mark the candidate non-compiling or unrealistic,
// never the reverse.
type Finding struct {
	Issues      []string
	BreaksBuild bool
	Unrealistic bool
}

func issue(format string, args ...any) Finding {
	return Finding{Issues: []string{fmt.Sprintf(format, args...)}}
}

func buildIssue(format string, args ...any) Finding {
	f := issue(format, args...)
	f.BreaksBuild = true
	return f
}

func realismIssue(format string, args ...any) Finding {
	f := issue(format, args...)
	f.Unrealistic = true
	return f
}

// CheckFunc inspects an Input and reports a Finding. Checks must be pure:
// no I/O, no shared state, deterministic for a given Input.
type CheckFunc func(Input) Finding

// Check is a named registered check.
type Check struct {
	Name string
	Run  CheckFunc
}

// Registry holds the ordered check list. Order determines issue order in
// the report, which in turn is the order feedback reaches the next attempt.
type Registry struct {
	checks []Check
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

func (r *Registry) Register(c Check) {
	r.checks = append(r.checks, c)
}

// Checks returns the registered checks in order.
func (r *Registry) Checks() []Check {
	return r.checks
}

// DefaultRegistry returns a registry with the full standard check list.
func DefaultRegistry(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	registerCompilationChecks(r)
	registerRealityChecks(r)
	registerQualityChecks(r)
	registerConsistencyChecks(r)
	registerDomainChecks(r)
	return r
}

// Validate runs every registered check and folds the findings into a
// Report. A check that panics is contained: it contributes one synthetic
// issue and forces the tier to Low, but never aborts the validator.
func (r *Registry) Validate(file string, in Input) Report {
	report := Report{
		File:      file,
		Compiles:  true,
		Realistic: true,
		Issues:    []string{},
	}
	forcedLow := false

	for _, c := range r.checks {
		finding, ok := r.runContained(c, in)
		if !ok {
			report.Issues = append(report.Issues,
				fmt.Sprintf("internal: check %q failed; result untrusted", c.Name))
			forcedLow = true
			continue
		}
		report.Issues = append(report.Issues, finding.Issues...)
		if finding.BreaksBuild {
			report.Compiles = false
		}
		if finding.Unrealistic {
			report.Realistic = false
		}
	}

	report.Quality = ComputeTier(report.Issues, report.Compiles, report.Realistic)
	if forcedLow {
		report.Quality = TierLow
	}
	return report
}

func (r *Registry) runContained(c Check, in Input) (finding Finding, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("validation check panicked",
				zap.String("check", c.Name),
				zap.Any("panic", rec))
			ok = false
		}
	}()
	return c.Run(in), true
}
