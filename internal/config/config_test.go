package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/programme-lv/cprun/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{
		"CPRUN_TIMEOUT_MS", "CPRUN_COMPILE_CMD", "CPRUN_COMPILE_TIMEOUT_MS",
		"CPRUN_ARTIFACT_DIR", "CPRUN_MAX_PARALLEL", "CPRUN_MAX_OUTPUT_BYTES",
		"CPRUN_LOG_LEVEL", "NATS_URL", "CPRUN_NATS_SUBJECT",
		"CPRUN_RESULTS_SQS_URL", "AWS_REGION",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Timeout())
	assert.Equal(t, "g++ -o {bin} {src}", cfg.CompileCmd)
	assert.Equal(t, 1, cfg.MaxParallel)
	assert.Equal(t, os.TempDir(), cfg.ArtifactDir)
}

func TestLoadFileThenEnv(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	err := os.WriteFile(path, []byte(`
timeout_ms = 500
compile_cmd = "clang++ -O2 -o {bin} {src}"
max_parallel = 4
`), 0644)
	require.NoError(t, err)

	t.Setenv("CPRUN_MAX_PARALLEL", "2")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.Timeout())
	assert.Equal(t, "clang++ -O2 -o {bin} {src}", cfg.CompileCmd)
	assert.Equal(t, 2, cfg.MaxParallel)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadDefaultPathFromXDG(t *testing.T) {
	isolateEnv(t)
	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "cprun")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("timeout_ms = 750\n"), 0644))

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Timeout())
}

func TestLoadExplicitMissingFile(t *testing.T) {
	isolateEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadInvalidEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("CPRUN_TIMEOUT_MS", "fast")

	_, err := config.Load("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	cfg.TimeoutMs = 0
	require.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.MaxParallel = 0
	require.Error(t, cfg.Validate())
}
