// Package regen drives the per-file generate/validate/regenerate loop as an
// explicit state machine: Init, Generating, Validating, Deciding, then
// Accepted, Regenerating or Exhausted.
package regen

import "ctestgen/internal/validate"

// State is the controller's position in one file's lifecycle.
type State int

const (
	StateInit State = iota
	StateGenerating
	StateValidating
	StateDeciding
	StateAccepted
	StateRegenerating
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateGenerating:
		return "generating"
	case StateValidating:
		return "validating"
	case StateDeciding:
		return "deciding"
	case StateAccepted:
		return "accepted"
	case StateRegenerating:
		return "regenerating"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a file's processing.
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateExhausted
}

// Transition is the Deciding step as a pure function: given the attempt's
// report, the 1-based attempt number and the run configuration, it yields
// Accepted or Regenerating. Acceptance happens when the quality threshold
// is met, when the attempt budget is spent (the sub-threshold result is
// retained and reported, never hidden), or when automatic regeneration is
// disabled.
func Transition(report validate.Report, attempt, maxAttempts int, threshold validate.Tier, autoRegen bool) State {
	if report.Passed(threshold) {
		return StateAccepted
	}
	if !autoRegen {
		return StateAccepted
	}
	if attempt >= maxAttempts {
		return StateAccepted
	}
	return StateRegenerating
}
