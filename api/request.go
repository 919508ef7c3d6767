package api

// BatchReq asks for one source file to be compiled once and run against every test.
type BatchReq struct {
	// Generated by the tester when empty
	BatchUuid string `json:"batchUuid"`

	SourcePath string `json:"sourcePath"`
	// Compile command template with {src} and {bin} placeholders.
	// The configured default is used when nil.
	CompileCmd *string `json:"compileCmd,omitempty"`
	// Per-test wall clock limit. The configured default is used when zero.
	TimeoutMs int `json:"timeoutMs,omitempty"`

	Tests []TestCase `json:"tests"`
}

// TestCase is one input / expected output pair together with its result fields.
// The JSON shape matches what the editor webview sends and renders.
type TestCase struct {
	ID             int64  `json:"id"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`

	Status       Verdict `json:"status"`
	ActualOutput string  `json:"actualOutput"`
	Error        *string `json:"error,omitempty"`
}

// Apply writes a test result onto the case's result fields.
func (tc *TestCase) Apply(res TestResult) {
	tc.Status = res.Status
	tc.ActualOutput = res.ActualOutput
	tc.Error = res.Error
}

// CancelReq asks a running batch to stop.
type CancelReq struct {
	BatchUuid string `json:"batchUuid"`
}

// CancelResp tells whether a running batch was found and cancelled.
type CancelResp struct {
	BatchUuid string `json:"batchUuid"`
	Cancelled bool   `json:"cancelled"`
}
