package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctestgen/internal/regen"
	"ctestgen/internal/validate"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResults() []regen.FileResult {
	return []regen.FileResult{
		{
			File:     "src/sensor.c",
			Attempts: 2,
			State:    regen.StateAccepted,
			Report: validate.Report{
				File:      "src/sensor.c",
				Compiles:  true,
				Realistic: true,
				Quality:   validate.TierHigh,
				Issues:    []string{},
			},
		},
		{
			File:     "src/logger.c",
			Attempts: 3,
			State:    regen.StateAccepted,
			Report: validate.Report{
				File:     "src/logger.c",
				Compiles: true,
				Quality:  validate.TierMedium,
				Issues:   []string{"multiple tests but none exercises a boundary or edge case"},
			},
		},
	}
}

func TestStore_SaveAndQueryRun(t *testing.T) {
	s := tempStore(t)

	started := time.Now().Add(-time.Minute)
	run := RunRecord{
		ID:         "run-1",
		StartedAt:  started,
		FinishedAt: time.Now(),
		Stats: regen.Snapshot{
			AttemptsIssued:          5,
			SuccessfulRegenerations: 1,
			FilesAccepted:           2,
		},
	}
	require.NoError(t, s.SaveRun(run, sampleResults()))

	runs, err := s.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, int64(5), runs[0].Stats.AttemptsIssued)
	assert.Equal(t, int64(1), runs[0].Stats.SuccessfulRegenerations)
}

func TestStore_FileHistory(t *testing.T) {
	s := tempStore(t)

	run := RunRecord{ID: "run-1", StartedAt: time.Now(), FinishedAt: time.Now()}
	require.NoError(t, s.SaveRun(run, sampleResults()))

	records, err := s.FileHistory("src/logger.c", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "medium", records[0].Quality)
	assert.True(t, records[0].Compiles)
	assert.False(t, records[0].Realist)
	require.Len(t, records[0].Issues, 1)
	assert.Contains(t, records[0].Issues[0], "boundary")
	assert.Equal(t, "accepted", records[0].State)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(RunRecord{ID: "run-1", StartedAt: time.Now(), FinishedAt: time.Now()}, nil))
	require.NoError(t, s.Close())

	s2, err := NewStore(path)
	require.NoError(t, err)
	defer s2.Close()

	runs, err := s2.RecentRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}
