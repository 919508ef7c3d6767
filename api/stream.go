package api

import "time"

// MsgType is a message type for streaming responses
type MsgType string

// Streaming message type constants
const (
	StartJobMsg      MsgType = "job_start"
	StartCompileMsg  MsgType = "compile_start"
	FinishCompileMsg MsgType = "compile_finish"
	ReachTestMsg     MsgType = "test_reach"
	IgnoreTestMsg    MsgType = "test_ignore"
	FinishTestMsg    MsgType = "test_finish"
	FinishJobMsg     MsgType = "job_finish"
)

// Size of the input echoed in ReachTest. Results are never trimmed.
const (
	MaxStreamTextHeight = 40
	MaxStreamTextWidth  = 80
)

// Header is the common header for all streaming response messages
type Header struct {
	BatchUuid string  `json:"batchUuid"`
	MsgType   MsgType `json:"msgType"`
}

// StartJob message sent when a batch begins
type StartJob struct {
	Header
	TestCount   int    `json:"testCount"`
	StartedTime string `json:"startedTime"`
}

// StartCompile message sent when compilation begins
type StartCompile struct {
	Header
}

// FinishCompile message sent when compilation completes
type FinishCompile struct {
	Header
	Result CompileResult `json:"result"`
}

// ReachTest message sent when a test is about to run
type ReachTest struct {
	Header
	TestId int64   `json:"testId"`
	Input  *string `json:"input"`
}

// IgnoreTest message sent when a test will not run
type IgnoreTest struct {
	Header
	TestId int64 `json:"testId"`
}

// FinishTest message carries one result keyed by test id
type FinishTest struct {
	Header
	Result TestResult `json:"result"`
}

// FinishJob message sent when the batch completes
type FinishJob struct {
	Header
	Status       BatchStatus `json:"status"`
	ErrorMessage *string     `json:"errorMessage"`
}

// Helper function to create a header
func NewHeader(batchUuid string, msgType MsgType) Header {
	return Header{
		BatchUuid: batchUuid,
		MsgType:   msgType,
	}
}

// Helper functions to create specific streaming message types
func NewStartJob(batchUuid string, testCount int) StartJob {
	return StartJob{
		Header:      NewHeader(batchUuid, StartJobMsg),
		TestCount:   testCount,
		StartedTime: time.Now().Format(time.RFC3339),
	}
}

func NewStartCompile(batchUuid string) StartCompile {
	return StartCompile{
		Header: NewHeader(batchUuid, StartCompileMsg),
	}
}

func NewFinishCompile(batchUuid string, res CompileResult) FinishCompile {
	return FinishCompile{
		Header: NewHeader(batchUuid, FinishCompileMsg),
		Result: res,
	}
}

func NewReachTest(batchUuid string, testId int64, input *string) ReachTest {
	return ReachTest{
		Header: NewHeader(batchUuid, ReachTestMsg),
		TestId: testId,
		Input:  input,
	}
}

func NewIgnoreTest(batchUuid string, testId int64) IgnoreTest {
	return IgnoreTest{
		Header: NewHeader(batchUuid, IgnoreTestMsg),
		TestId: testId,
	}
}

func NewFinishTest(batchUuid string, res TestResult) FinishTest {
	return FinishTest{
		Header: NewHeader(batchUuid, FinishTestMsg),
		Result: res,
	}
}

func NewFinishJob(batchUuid string, status BatchStatus, errorMessage *string) FinishJob {
	return FinishJob{
		Header:       NewHeader(batchUuid, FinishJobMsg),
		Status:       status,
		ErrorMessage: errorMessage,
	}
}
