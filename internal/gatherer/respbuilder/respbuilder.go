package respbuilder

import (
	"time"

	"github.com/programme-lv/cprun/api"
)

// Builder gathers batch events and builds a complete api.BatchResponse.
type Builder struct {
	batchUuid string

	started  time.Time
	finished *time.Time

	compileResult api.CompileResult

	// tests in request order, results are written by id
	tests []api.TestCase
	index map[int64]int

	status       api.BatchStatus
	errorMessage *string
}

// New returns a builder for tests. Result fields of cases that never
// finish stay empty in the response.
func New(batchUuid string, tests []api.TestCase) *Builder {
	b := &Builder{
		batchUuid: batchUuid,
		started:   time.Now(),
		tests:     make([]api.TestCase, len(tests)),
		index:     make(map[int64]int, len(tests)),
		status:    api.Success,
	}
	for i, tc := range tests {
		b.tests[i] = api.TestCase{ID: tc.ID, Input: tc.Input, ExpectedOutput: tc.ExpectedOutput}
		b.index[tc.ID] = i
	}
	return b
}

// StartJob implements ResultGatherer.
func (b *Builder) StartJob(batchUuid string, testCount int) {
	b.batchUuid = batchUuid
	b.started = time.Now()
}

// StartCompile implements ResultGatherer.
func (b *Builder) StartCompile() {}

// FinishCompile implements ResultGatherer.
func (b *Builder) FinishCompile(res api.CompileResult) {
	b.compileResult = res
}

// ReachTest implements ResultGatherer.
func (b *Builder) ReachTest(testId int64, input string) {}

// IgnoreTest implements ResultGatherer.
func (b *Builder) IgnoreTest(testId int64) {}

// FinishTest implements ResultGatherer.
func (b *Builder) FinishTest(res api.TestResult) {
	i, ok := b.index[res.ID]
	if !ok {
		return
	}
	b.tests[i].Apply(res)
}

// CompileError implements ResultGatherer.
func (b *Builder) CompileError(msg string) {
	b.status = api.CompileError
	b.errorMessage = &msg
	b.finish()
}

// InternalError implements ResultGatherer.
func (b *Builder) InternalError(msg string) {
	b.status = api.InternalError
	b.errorMessage = &msg
	b.finish()
}

// Cancelled implements ResultGatherer.
func (b *Builder) Cancelled() {
	b.status = api.Cancelled
	b.finish()
}

// FinishNoError implements ResultGatherer.
func (b *Builder) FinishNoError() {
	b.finish()
}

func (b *Builder) finish() {
	now := time.Now()
	b.finished = &now
}

// Response builds the api.BatchResponse from gathered data.
func (b *Builder) Response() api.BatchResponse {
	start := b.started.Format(time.RFC3339)
	finish := start
	total := int64(0)
	if b.finished != nil {
		finish = b.finished.Format(time.RFC3339)
		total = b.finished.Sub(b.started).Milliseconds()
	}
	results := make([]api.TestCase, len(b.tests))
	copy(results, b.tests)
	return api.BatchResponse{
		BatchUuid:   b.batchUuid,
		Status:      b.status,
		Compilation: b.compileResult,
		Results:     results,
		ErrorMessage: func() *string {
			if b.errorMessage == nil {
				return nil
			}
			v := *b.errorMessage
			return &v
		}(),
		StartTime:   start,
		FinishTime:  finish,
		TotalTimeMs: total,
	}
}
