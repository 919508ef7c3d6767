// Package tester runs batches: one compilation followed by every test case
// of the batch against the produced executable.
package tester

import (
	"context"
	"log/slog"
	"time"

	"github.com/programme-lv/cprun/internal/compile"
	"github.com/programme-lv/cprun/internal/runner"
	"github.com/puzpuzpuz/xsync/v3"
)

const DefaultTimeout = 2000 * time.Millisecond

type Config struct {
	// Per-test limit used when a request carries none
	Timeout time.Duration
	// Test cases of one batch that may run at the same time
	MaxParallel int
}

type Tester struct {
	compiler    *compile.Compiler
	runner      *runner.Runner
	timeout     time.Duration
	maxParallel int
	logger      *slog.Logger

	// cancel funcs of running batches keyed by batch uuid
	active *xsync.MapOf[string, context.CancelFunc]
}

func NewTester(logger *slog.Logger, compiler *compile.Compiler, runner *runner.Runner, cfg Config) *Tester {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxParallel < 1 {
		cfg.MaxParallel = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tester{
		compiler:    compiler,
		runner:      runner,
		timeout:     cfg.Timeout,
		maxParallel: cfg.MaxParallel,
		logger:      logger,
		active:      xsync.NewMapOf[string, context.CancelFunc](),
	}
}

// Cancel stops the running batch batchUuid. It reports whether such a batch
// was running.
func (t *Tester) Cancel(batchUuid string) bool {
	cancel, ok := t.active.Load(batchUuid)
	if !ok {
		return false
	}
	t.logger.Info("Cancelling batch...", "batch", batchUuid)
	cancel()
	return true
}

// Running returns the number of batches in progress.
func (t *Tester) Running() int {
	return t.active.Size()
}
