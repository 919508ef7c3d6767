package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/programme-lv/cprun/internal/compile"
	"github.com/programme-lv/cprun/internal/runner"
	"github.com/programme-lv/cprun/internal/tester"
	"github.com/programme-lv/cprun/internal/xdg"
)

const (
	AppName          = "cprun"
	DefaultSubject   = "cprun"
	DefaultNatsURL   = "nats://127.0.0.1:4222"
	DefaultAwsRegion = "eu-central-1"
)

type Config struct {
	TimeoutMs        int    `toml:"timeout_ms"`
	CompileCmd       string `toml:"compile_cmd"`
	CompileTimeoutMs int    `toml:"compile_timeout_ms"`
	ArtifactDir      string `toml:"artifact_dir"`
	MaxParallel      int    `toml:"max_parallel"`
	MaxOutputBytes   int    `toml:"max_output_bytes"`
	LogLevel         string `toml:"log_level"`

	NatsURL     string `toml:"nats_url"`
	NatsSubject string `toml:"nats_subject"`

	// Optional SQS queue that receives streamed results
	ResultsSqsUrl string `toml:"results_sqs_url"`
	AwsRegion     string `toml:"aws_region"`
}

func Default() Config {
	return Config{
		TimeoutMs:        int(tester.DefaultTimeout.Milliseconds()),
		CompileCmd:       compile.DefaultCommand,
		CompileTimeoutMs: int(compile.DefaultTimeout.Milliseconds()),
		ArtifactDir:      os.TempDir(),
		MaxParallel:      1,
		MaxOutputBytes:   runner.DefaultMaxOutputBytes,
		LogLevel:         "info",
		NatsURL:          DefaultNatsURL,
		NatsSubject:      DefaultSubject,
		AwsRegion:        DefaultAwsRegion,
	}
}

// DefaultPath is $XDG_CONFIG_HOME/cprun/config.toml.
func DefaultPath() string {
	return filepath.Join(xdg.NewXDGDirs().AppConfigDir(AppName), "config.toml")
}

// Load layers the defaults, the TOML file at path, a .env file in the
// working directory and CPRUN_* environment variables, in that order.
// An empty path means DefaultPath, which may be missing.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	err = godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"CPRUN_COMPILE_CMD":     &cfg.CompileCmd,
		"CPRUN_ARTIFACT_DIR":    &cfg.ArtifactDir,
		"CPRUN_LOG_LEVEL":       &cfg.LogLevel,
		"NATS_URL":              &cfg.NatsURL,
		"CPRUN_NATS_SUBJECT":    &cfg.NatsSubject,
		"CPRUN_RESULTS_SQS_URL": &cfg.ResultsSqsUrl,
		"AWS_REGION":            &cfg.AwsRegion,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"CPRUN_TIMEOUT_MS":         &cfg.TimeoutMs,
		"CPRUN_COMPILE_TIMEOUT_MS": &cfg.CompileTimeoutMs,
		"CPRUN_MAX_PARALLEL":       &cfg.MaxParallel,
		"CPRUN_MAX_OUTPUT_BYTES":   &cfg.MaxOutputBytes,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		*dst = n
	}
	return nil
}

func (c Config) Validate() error {
	if c.TimeoutMs <= 0 {
		return fmt.Errorf("timeout_ms must be positive, got %d", c.TimeoutMs)
	}
	if c.CompileTimeoutMs <= 0 {
		return fmt.Errorf("compile_timeout_ms must be positive, got %d", c.CompileTimeoutMs)
	}
	if c.MaxParallel < 1 {
		return fmt.Errorf("max_parallel must be at least 1, got %d", c.MaxParallel)
	}
	if c.MaxOutputBytes <= 0 {
		return fmt.Errorf("max_output_bytes must be positive, got %d", c.MaxOutputBytes)
	}
	if c.CompileCmd == "" {
		return fmt.Errorf("compile_cmd must not be empty")
	}
	return nil
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c Config) CompileTimeout() time.Duration {
	return time.Duration(c.CompileTimeoutMs) * time.Millisecond
}
