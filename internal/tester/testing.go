package tester

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/programme-lv/cprun/api"
	"github.com/programme-lv/cprun/internal/compile"
	"golang.org/x/sync/errgroup"
)

var (
	ErrCancelled       = fmt.Errorf("batch cancelled: %w", context.Canceled)
	ErrDuplicateTestID = errors.New("duplicate test id")
	ErrNoSource        = errors.New("no source path")
	ErrBatchRunning    = errors.New("batch with this uuid is already running")
)

// RunBatch compiles req.SourcePath once and runs every test case against the
// executable. It returns a copy of req.Tests with the result fields filled in;
// req itself is never modified.
//
// A compile failure returns *compile.Error and the copy with no verdicts set.
// TLE and RTE never stop the batch. When ctx is cancelled or Cancel is called
// the cases that did not finish are reported as ignored and ErrCancelled is
// returned. The executable is removed before RunBatch returns.
//
// gath may be nil when the caller only needs the returned cases.
func (t *Tester) RunBatch(ctx context.Context, req api.BatchReq, gath ResultGatherer) ([]api.TestCase, error) {
	cases := slices.Clone(req.Tests)
	if req.BatchUuid == "" {
		req.BatchUuid = uuid.NewString()
	}
	if gath == nil {
		gath = Tee{}
	}
	gath = &lockedGatherer{gath: gath}
	logger := t.logger.With("batch", req.BatchUuid)

	if err := validate(req); err != nil {
		gath.InternalError(err.Error())
		return cases, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if _, loaded := t.active.LoadOrStore(req.BatchUuid, cancel); loaded {
		err := fmt.Errorf("%w: %s", ErrBatchRunning, req.BatchUuid)
		gath.InternalError(err.Error())
		return cases, err
	}
	defer t.active.Delete(req.BatchUuid)

	gath.StartJob(req.BatchUuid, len(cases))

	exePath := t.compiler.ArtifactPath()
	defer removeArtifact(logger, exePath)

	gath.StartCompile()
	err := t.compile(ctx, req, exePath, gath)
	if err != nil {
		var compileErr *compile.Error
		switch {
		case errors.As(err, &compileErr):
			gath.CompileError(compileErr.Diagnostic)
			return cases, err
		case ctx.Err() != nil:
			return cases, t.finishCancelled(logger, cases, gath)
		default:
			err = fmt.Errorf("failed to compile source: %w", err)
			gath.InternalError(err.Error())
			return cases, err
		}
	}

	timeout := t.timeout
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}

	logger.Info("Running tests...", "count", len(cases), "timeout", timeout, "parallel", t.maxParallel)
	var errs errgroup.Group
	var skipped atomic.Bool
	errs.SetLimit(t.maxParallel)
	for i := range cases {
		errs.Go(func() error {
			tc := &cases[i]
			if ctx.Err() != nil {
				skipped.Store(true)
				gath.IgnoreTest(tc.ID)
				return nil
			}
			gath.ReachTest(tc.ID, tc.Input)
			out, err := t.runner.Run(ctx, exePath, tc.Input, tc.ExpectedOutput, timeout)
			if err != nil {
				skipped.Store(true)
				gath.IgnoreTest(tc.ID)
				return nil
			}
			res := out.Result(tc.ID)
			tc.Apply(res)
			logger.Debug("Finished test", "test", tc.ID, "verdict", res.Status, "wall", out.WallTime)
			gath.FinishTest(res)
			return nil
		})
	}
	_ = errs.Wait()

	// a cancel that arrives after the last test finished changes nothing
	if skipped.Load() {
		return cases, t.finishCancelled(logger, nil, gath)
	}

	logger.Info("Finished tests", "summary", summarize(cases))
	gath.FinishNoError()
	return cases, nil
}

func (t *Tester) compile(ctx context.Context, req api.BatchReq, exePath string, gath ResultGatherer) error {
	start := time.Now()
	var err error
	if req.CompileCmd != nil {
		err = t.compiler.CompileWith(ctx, *req.CompileCmd, req.SourcePath, exePath)
	} else {
		err = t.compiler.Compile(ctx, req.SourcePath, exePath)
	}
	wallMs := time.Since(start).Milliseconds()

	var compileErr *compile.Error
	switch {
	case err == nil:
		exitCode := 0
		gath.FinishCompile(api.CompileResult{Success: true, ExitCode: &exitCode, WallMs: wallMs})
	case errors.As(err, &compileErr):
		diag := compileErr.Diagnostic
		exitCode := compileErr.ExitCode
		gath.FinishCompile(api.CompileResult{Success: false, Error: &diag, ExitCode: &exitCode, WallMs: wallMs})
	}
	return err
}

// finishCancelled reports ignored for every case in unrun and ends the job.
func (t *Tester) finishCancelled(logger *slog.Logger, unrun []api.TestCase, gath ResultGatherer) error {
	for _, tc := range unrun {
		gath.IgnoreTest(tc.ID)
	}
	logger.Info("Batch cancelled")
	gath.Cancelled()
	return ErrCancelled
}

func validate(req api.BatchReq) error {
	if req.SourcePath == "" {
		return ErrNoSource
	}
	seen := mapset.NewThreadUnsafeSet[int64]()
	for _, tc := range req.Tests {
		if !seen.Add(tc.ID) {
			return fmt.Errorf("%w: %d", ErrDuplicateTestID, tc.ID)
		}
	}
	return nil
}

func removeArtifact(logger *slog.Logger, path string) {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Failed to remove executable", "path", path, "error", err)
	}
}

func summarize(cases []api.TestCase) map[api.Verdict]int {
	counts := make(map[api.Verdict]int)
	for _, tc := range cases {
		counts[tc.Status]++
	}
	return counts
}
