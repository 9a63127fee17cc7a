package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctestgen/internal/validate"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ctestgen", cfg.Name)
	assert.Equal(t, 3, cfg.Regeneration.MaxAttempts)
	assert.Equal(t, validate.TierMedium, cfg.Threshold())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
project:
  root: /tmp/project
  source_dir: firmware
regeneration:
  max_attempts: 5
  threshold: high
  auto: false
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/project", cfg.Project.Root)
	assert.Equal(t, filepath.Join("/tmp/project", "firmware"), cfg.SourceRoot())
	assert.Equal(t, 5, cfg.Regeneration.MaxAttempts)
	assert.Equal(t, validate.TierHigh, cfg.Threshold())
	assert.False(t, cfg.Regeneration.Auto)
	// Untouched sections keep their defaults.
	assert.Equal(t, []string{"gemini-2.5-flash", "gemini-2.0-flash"}, cfg.Generation.Models)
}

func TestLoad_EnvOverridesAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Generation.APIKey)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Regeneration.Threshold = "high"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, validate.TierHigh, loaded.Threshold())
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := DefaultConfig()
	bad.Regeneration.Threshold = "ultra"
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Generation.Models = nil
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Regeneration.MaxAttempts = -1
	assert.Error(t, bad.Validate())

	// Zero attempts would silently run once; reject it up front.
	bad = DefaultConfig()
	bad.Regeneration.MaxAttempts = 0
	assert.Error(t, bad.Validate())
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 2*time.Second, cfg.GetBackoff())
	cfg.Generation.Backoff = "bogus"
	assert.Equal(t, 2*time.Second, cfg.GetBackoff())
	cfg.Generation.Backoff = "500ms"
	assert.Equal(t, 500*time.Millisecond, cfg.GetBackoff())
}
