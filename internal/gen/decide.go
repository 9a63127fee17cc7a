package gen

import (
	"strings"
	"time"
)

// Class is the adapter's classification of a backend failure.
type Class int

const (
	// ClassThrottled covers rate, quota and overload signals; recoverable
	// by backoff or fallback.
	ClassThrottled Class = iota
	// ClassPermanent is every other failure; never retried locally.
	ClassPermanent
)

func (c Class) String() string {
	if c == ClassThrottled {
		return "throttled"
	}
	return "permanent"
}

// throttleSignals are the substrings that mark a failure as throttling.
var throttleSignals = []string{
	"429",
	"rate limit",
	"ratelimit",
	"quota",
	"resource exhausted",
	"resource_exhausted",
	"too many requests",
	"overloaded",
	"unavailable",
	"503",
}

// Classify inspects a failure's message and sorts it into throttling
// versus everything else.
func Classify(err error) Class {
	if err == nil {
		return ClassPermanent
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range throttleSignals {
		if strings.Contains(msg, sig) {
			return ClassThrottled
		}
	}
	return ClassPermanent
}

// Action is what the adapter does next after a failed try.
type Action int

const (
	ActionRetrySameBackend Action = iota
	ActionSwitchBackend
	ActionTerminal
)

// Outcome is Decide's answer: the next action and, for a local retry, how
// long to back off first.
type Outcome struct {
	Action Action
	Delay  time.Duration
}

// Decide maps (zero-based try index, per-backend try budget, failure class)
// to the next action. Pure; the adapter owns the clock and the network.
// Throttling before the final try backs off and retries the same backend,
// doubling from base. Throttling on the final try switches backends. A
// permanent failure is terminal for the call.
func Decide(try, tries int, class Class, base time.Duration) Outcome {
	if class == ClassPermanent {
		return Outcome{Action: ActionTerminal}
	}
	if try < tries-1 {
		return Outcome{
			Action: ActionRetrySameBackend,
			Delay:  base << uint(try),
		}
	}
	return Outcome{Action: ActionSwitchBackend}
}
