// Package runner spawns a compiled test executable, feeds it one input and
// turns the way it terminates into a verdict.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/programme-lv/cprun/api"
	"github.com/programme-lv/cprun/internal/verdict"
)

// DefaultMaxOutputBytes caps each captured stream. Output past the cap is
// discarded and the outcome is marked as truncated.
const DefaultMaxOutputBytes = 64 << 20

// waitDelay bounds how long Wait keeps collecting output after the process
// itself is gone, e.g. when a forked child still holds the pipes.
const waitDelay = 500 * time.Millisecond

// Outcome is the immutable result of one run.
type Outcome struct {
	Verdict api.Verdict
	Stdout  string
	Stderr  string
	// Diag holds stderr for runtime errors and the system error when the
	// executable could not be started.
	Diag      *string
	ExitCode  *int
	WallTime  time.Duration
	Truncated bool
}

// Result converts the outcome into the wire record for test testId.
func (o Outcome) Result(testId int64) api.TestResult {
	return api.TestResult{
		ID:           testId,
		Status:       o.Verdict,
		ActualOutput: o.Stdout,
		Error:        o.Diag,
		ExitCode:     o.ExitCode,
		WallMs:       o.WallTime.Milliseconds(),
		Truncated:    o.Truncated,
	}
}

type Runner struct {
	maxOutputBytes int
	logger         *slog.Logger
}

func New(logger *slog.Logger, maxOutputBytes int) *Runner {
	if maxOutputBytes <= 0 {
		maxOutputBytes = DefaultMaxOutputBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		maxOutputBytes: maxOutputBytes,
		logger:         logger,
	}
}

// Run executes exePath once with input on stdin and classifies the result
// against expected. The timeout starts at spawn; a zero timeout means no limit.
//
// The only error returned is ctx.Err() when ctx is cancelled while the
// process is still running. Every other failure is reported as an outcome.
func (r *Runner) Run(
	ctx context.Context,
	exePath string,
	input string,
	expected string,
	timeout time.Duration,
) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	var runCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	stdout := newCappedBuffer(r.maxOutputBytes)
	stderr := newCappedBuffer(r.maxOutputBytes)

	cmd := exec.CommandContext(runCtx, exePath)
	cmd.Stdin = strings.NewReader(input)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	// set only when our kill actually hit a live process, so a process that
	// exited on its own right before the deadline keeps its natural outcome
	var killed atomic.Bool
	cmd.Cancel = func() error {
		err := killProcessGroup(cmd.Process)
		if err == nil {
			killed.Store(true)
		}
		return err
	}

	r.logger.Debug("Starting process...", "path", exePath, "timeout", timeout)
	start := time.Now()
	if err := cmd.Start(); err != nil {
		r.logger.Debug("Failed to start process", "path", exePath, "error", err)
		msg := err.Error()
		return Outcome{
			Verdict: api.RuntimeError,
			Diag:    &msg,
		}, nil
	}

	waitErr := cmd.Wait()
	wall := time.Since(start)

	if killed.Load() {
		if err := ctx.Err(); err != nil {
			r.logger.Debug("Process killed on cancellation", "path", exePath)
			return Outcome{}, err
		}
		r.logger.Debug("Process killed on timeout", "path", exePath, "wall", wall)
		return Outcome{
			Verdict:  api.TimeLimitExceeded,
			WallTime: wall,
		}, nil
	}

	out := Outcome{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		WallTime:  wall,
		Truncated: stdout.Truncated() || stderr.Truncated(),
	}
	if cmd.ProcessState != nil {
		code := cmd.ProcessState.ExitCode()
		out.ExitCode = &code
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil, errors.Is(waitErr, exec.ErrWaitDelay) && cmd.ProcessState.Success():
		out.Verdict = verdict.Classify(out.Stdout, expected)
	case errors.As(waitErr, &exitErr):
		diag := out.Stderr
		out.Verdict = api.RuntimeError
		out.Diag = &diag
	default:
		msg := waitErr.Error()
		out.Verdict = api.RuntimeError
		out.Diag = &msg
	}

	r.logger.Debug("Process finished", "path", exePath, "verdict", out.Verdict, "wall", wall)
	return out, nil
}
