package validate

import "regexp"

// Domain-feature coverage: when the subject source exhibits an embedded-C
// pattern, the tests must engage with it. Each check fires only if the
// source matches its trigger vocabulary.

type domainFeature struct {
	name     string
	trigger  *regexp.Regexp // matched against the source
	required *regexp.Regexp // matched against the test text
	hint     string
}

var domainFeatures = []domainFeature{
	{
		name:     "volatile-access",
		trigger:  regexp.MustCompile(`\bvolatile\b`),
		required: regexp.MustCompile(`\bvolatile\b`),
		hint:     "source uses volatile-qualified access but tests never reference volatile",
	},
	{
		name:     "bit-fields",
		trigger:  regexp.MustCompile(`\w+\s*:\s*\d+\s*;`),
		required: regexp.MustCompile(`<<|>>|\s[&|^]\s|[&|^]=`),
		hint:     "source declares bit-fields but tests use no bit operators",
	},
	{
		name:     "state-machine",
		trigger:  regexp.MustCompile(`(?i)\bstate\b|STATE_|\benum\b.*[Ss]tate`),
		required: regexp.MustCompile(`(?i)transition|state`),
		hint:     "source models a state machine but tests never exercise a transition",
	},
	{
		name:     "redundancy-voting",
		trigger:  regexp.MustCompile(`(?i)\bvot(?:e|ing|er)\b|redundan|majority|\btmr\b`),
		required: regexp.MustCompile(`(?i)disagree|mismatch|fault|\bvot`),
		hint:     "source uses redundancy voting but tests cover no disagreement or fault scenario",
	},
	{
		name:     "watchdog",
		trigger:  regexp.MustCompile(`(?i)watchdog|\bwdt\b`),
		required: regexp.MustCompile(`(?i)timeout|feed|kick|watchdog`),
		hint:     "source has a watchdog but tests never cover timeout or feed behavior",
	},
	{
		name:     "interrupt-dma",
		trigger:  regexp.MustCompile(`(?i)\binterrupt\b|\bisr\b|\bdma\b|\birq\b`),
		required: regexp.MustCompile(`(?i)interrupt|\bisr\b|simulat|trigger|\bdma\b`),
		hint:     "source handles interrupts or DMA but tests never simulate hardware interaction",
	},
	{
		name:     "memory-mapped-registers",
		trigger:  regexp.MustCompile(`(?i)\bregister\b|\(\s*volatile\s+\w+\s*\*\s*\)\s*0x[0-9a-f]+`),
		required: regexp.MustCompile(`(?i)\bregister\b|0x[0-9a-f]+|->|\*\s*\(`),
		hint:     "source accesses memory-mapped registers but tests never read or write one",
	},
}

func registerDomainChecks(r *Registry) {
	for _, feat := range domainFeatures {
		feat := feat
		r.Register(Check{
			Name: "domain-" + feat.name,
			Run: func(in Input) Finding {
				if !feat.trigger.MatchString(in.Source) {
					return Finding{}
				}
				if feat.required.MatchString(in.Test) {
					return Finding{}
				}
				return issue("%s", feat.hint)
			},
		})
	}
}
