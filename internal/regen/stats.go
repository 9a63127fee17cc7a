package regen

import "sync/atomic"

// Stats are process-wide counters, safe for the optional parallel mode.
type Stats struct {
	AttemptsIssued          atomic.Int64
	SuccessfulRegenerations atomic.Int64
	FilesAccepted           atomic.Int64
	FilesFailed             atomic.Int64
	FilesBelowThreshold     atomic.Int64
}

// Snapshot is a plain-value copy for end-of-run reporting.
type Snapshot struct {
	AttemptsIssued          int64
	SuccessfulRegenerations int64
	FilesAccepted           int64
	FilesFailed             int64
	FilesBelowThreshold     int64
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		AttemptsIssued:          s.AttemptsIssued.Load(),
		SuccessfulRegenerations: s.SuccessfulRegenerations.Load(),
		FilesAccepted:           s.FilesAccepted.Load(),
		FilesFailed:             s.FilesFailed.Load(),
		FilesBelowThreshold:     s.FilesBelowThreshold.Load(),
	}
}
