package natsgath

import (
	"log/slog"

	"github.com/programme-lv/cprun/api"
)

type natsGatherer struct {
	nc        Publisher
	inbox     string
	batchUuid string
	logger    *slog.Logger
}

// StartJob implements tester.ResultGatherer.
func (s *natsGatherer) StartJob(batchUuid string, testCount int) {
	s.batchUuid = batchUuid
	s.send(api.NewStartJob(s.batchUuid, testCount))
}

// StartCompile implements tester.ResultGatherer.
func (s *natsGatherer) StartCompile() {
	s.send(api.NewStartCompile(s.batchUuid))
}

func (s *natsGatherer) FinishCompile(res api.CompileResult) {
	s.send(api.NewFinishCompile(s.batchUuid, res))
}

// ReachTest implements tester.ResultGatherer. Only the echoed input is
// trimmed, results are sent in full.
func (s *natsGatherer) ReachTest(testId int64, input string) {
	var inputStrPtr *string
	trimmedInput := trimStrToRect(input, api.MaxStreamTextHeight, api.MaxStreamTextWidth)
	if trimmedInput != "" {
		inputStrPtr = &trimmedInput
	}
	s.send(api.NewReachTest(s.batchUuid, testId, inputStrPtr))
}

// IgnoreTest implements tester.ResultGatherer.
func (s *natsGatherer) IgnoreTest(testId int64) {
	s.send(api.NewIgnoreTest(s.batchUuid, testId))
}

func (s *natsGatherer) FinishTest(res api.TestResult) {
	s.send(api.NewFinishTest(s.batchUuid, res))
}

func (s *natsGatherer) CompileError(msg string) {
	s.send(api.NewFinishJob(s.batchUuid, api.CompileError, &msg))
}

func (s *natsGatherer) InternalError(msg string) {
	s.send(api.NewFinishJob(s.batchUuid, api.InternalError, &msg))
}

func (s *natsGatherer) Cancelled() {
	s.send(api.NewFinishJob(s.batchUuid, api.Cancelled, nil))
}

func (s *natsGatherer) FinishNoError() {
	s.send(api.NewFinishJob(s.batchUuid, api.Success, nil))
}
