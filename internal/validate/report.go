package validate

// Report is the outcome of validating one candidate test file.
type Report struct {
	File      string   `json:"file"`
	Compiles  bool     `json:"compiles"`
	Realistic bool     `json:"realistic"`
	Quality   Tier     `json:"quality"`
	Issues    []string `json:"issues"`
}

// Passed reports whether the candidate meets the given threshold.
func (r Report) Passed(threshold Tier) bool {
	return r.Quality.AtLeast(threshold)
}

// ComputeTier derives the quality tier from the other report fields.
// It is total and deterministic: a clean, compiling, realistic candidate is
// High; at most two issues on a compiling candidate is Medium; everything
// else is Low.
func ComputeTier(issues []string, compiles, realistic bool) Tier {
	if len(issues) == 0 && compiles && realistic {
		return TierHigh
	}
	if len(issues) <= 2 && compiles {
		return TierMedium
	}
	return TierLow
}
