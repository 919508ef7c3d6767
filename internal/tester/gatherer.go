package tester

import (
	"sync"

	"github.com/programme-lv/cprun/api"
)

//go:generate mockgen -destination=mocks/gatherer.go -package=mocks github.com/programme-lv/cprun/internal/tester ResultGatherer

// ResultGatherer receives the progress of one batch. Implementations need
// not be safe for concurrent use, the tester serialises every call.
type ResultGatherer interface {
	StartJob(batchUuid string, testCount int)

	StartCompile()
	FinishCompile(res api.CompileResult)

	ReachTest(testId int64, input string)
	IgnoreTest(testId int64)
	FinishTest(res api.TestResult)

	CompileError(msg string)
	InternalError(msg string)
	Cancelled()
	FinishNoError()
}

// Tee forwards every event to each gatherer in order.
type Tee []ResultGatherer

func (t Tee) StartJob(batchUuid string, testCount int) {
	for _, g := range t {
		g.StartJob(batchUuid, testCount)
	}
}

func (t Tee) StartCompile() {
	for _, g := range t {
		g.StartCompile()
	}
}

func (t Tee) FinishCompile(res api.CompileResult) {
	for _, g := range t {
		g.FinishCompile(res)
	}
}

func (t Tee) ReachTest(testId int64, input string) {
	for _, g := range t {
		g.ReachTest(testId, input)
	}
}

func (t Tee) IgnoreTest(testId int64) {
	for _, g := range t {
		g.IgnoreTest(testId)
	}
}

func (t Tee) FinishTest(res api.TestResult) {
	for _, g := range t {
		g.FinishTest(res)
	}
}

func (t Tee) CompileError(msg string) {
	for _, g := range t {
		g.CompileError(msg)
	}
}

func (t Tee) InternalError(msg string) {
	for _, g := range t {
		g.InternalError(msg)
	}
}

func (t Tee) Cancelled() {
	for _, g := range t {
		g.Cancelled()
	}
}

func (t Tee) FinishNoError() {
	for _, g := range t {
		g.FinishNoError()
	}
}

type lockedGatherer struct {
	mu   sync.Mutex
	gath ResultGatherer
}

func (l *lockedGatherer) StartJob(batchUuid string, testCount int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gath.StartJob(batchUuid, testCount)
}

func (l *lockedGatherer) StartCompile() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gath.StartCompile()
}

func (l *lockedGatherer) FinishCompile(res api.CompileResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gath.FinishCompile(res)
}

func (l *lockedGatherer) ReachTest(testId int64, input string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gath.ReachTest(testId, input)
}

func (l *lockedGatherer) IgnoreTest(testId int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gath.IgnoreTest(testId)
}

func (l *lockedGatherer) FinishTest(res api.TestResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gath.FinishTest(res)
}

func (l *lockedGatherer) CompileError(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gath.CompileError(msg)
}

func (l *lockedGatherer) InternalError(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gath.InternalError(msg)
}

func (l *lockedGatherer) Cancelled() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gath.Cancelled()
}

func (l *lockedGatherer) FinishNoError() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gath.FinishNoError()
}
