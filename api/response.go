package api

// Simple, non-streaming response types for batch results

// TestResult is the outcome of running a single test case
type TestResult struct {
	ID           int64   `json:"id"`
	Status       Verdict `json:"status"`
	ActualOutput string  `json:"actualOutput"`
	Error        *string `json:"error,omitempty"`

	ExitCode  *int  `json:"exitCode,omitempty"`
	WallMs    int64 `json:"wallMs"`
	Truncated bool  `json:"truncated,omitempty"`
}

// CompileResult represents compilation outcome
type CompileResult struct {
	Success bool    `json:"success"`
	Error   *string `json:"error,omitempty"`

	ExitCode *int  `json:"exitCode,omitempty"`
	WallMs   int64 `json:"wallMs"`
}

type BatchStatus string

const (
	Success       BatchStatus = "success"
	CompileError  BatchStatus = "compile_error"
	InternalError BatchStatus = "internal_error"
	Cancelled     BatchStatus = "cancelled"
)

// BatchResponse is the complete result of a batch, delivered in one shot
type BatchResponse struct {
	BatchUuid string `json:"batchUuid"`

	Status BatchStatus `json:"status"`

	Compilation CompileResult `json:"compilation"`

	// Same cases as in the request. Result fields stay empty
	// for cases that never ran.
	Results []TestCase `json:"results"`

	// Compile diagnostic or internal error text
	ErrorMessage *string `json:"errorMessage,omitempty"`

	StartTime   string `json:"startTime"`
	FinishTime  string `json:"finishTime"`
	TotalTimeMs int64  `json:"totalTimeMs"`
}
