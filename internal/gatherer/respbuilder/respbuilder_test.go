package respbuilder_test

import (
	"testing"

	"github.com/programme-lv/cprun/api"
	"github.com/programme-lv/cprun/internal/gatherer/respbuilder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cases() []api.TestCase {
	return []api.TestCase{
		{ID: 10, Input: "1 2", ExpectedOutput: "3"},
		{ID: 20, Input: "2 2", ExpectedOutput: "4"},
		{ID: 30, Input: "3 3", ExpectedOutput: "6"},
	}
}

func TestBuilderSuccess(t *testing.T) {
	b := respbuilder.New("", cases())

	diag := "oops"
	b.StartJob("b1", 3)
	b.StartCompile()
	b.FinishCompile(api.CompileResult{Success: true, WallMs: 15})
	// results may arrive out of order in parallel mode
	b.FinishTest(api.TestResult{ID: 20, Status: api.RuntimeError, Error: &diag})
	b.FinishTest(api.TestResult{ID: 10, Status: api.Accepted, ActualOutput: "3\n"})
	b.FinishTest(api.TestResult{ID: 30, Status: api.WrongAnswer, ActualOutput: "7\n"})
	b.FinishTest(api.TestResult{ID: 99, Status: api.Accepted})
	b.FinishNoError()

	resp := b.Response()
	assert.Equal(t, "b1", resp.BatchUuid)
	assert.Equal(t, api.Success, resp.Status)
	assert.True(t, resp.Compilation.Success)
	assert.Nil(t, resp.ErrorMessage)
	assert.NotEmpty(t, resp.FinishTime)

	require.Len(t, resp.Results, 3)
	assert.Equal(t, int64(10), resp.Results[0].ID)
	assert.Equal(t, api.Accepted, resp.Results[0].Status)
	assert.Equal(t, "3\n", resp.Results[0].ActualOutput)
	assert.Equal(t, api.RuntimeError, resp.Results[1].Status)
	assert.Equal(t, &diag, resp.Results[1].Error)
	assert.Equal(t, api.WrongAnswer, resp.Results[2].Status)
	assert.Equal(t, "3 3", resp.Results[2].Input)
}

func TestBuilderCompileError(t *testing.T) {
	b := respbuilder.New("b2", cases())

	code := 1
	diag := "main.cpp:1: error"
	b.StartJob("b2", 3)
	b.StartCompile()
	b.FinishCompile(api.CompileResult{Success: false, Error: &diag, ExitCode: &code})
	b.CompileError(diag)

	resp := b.Response()
	assert.Equal(t, api.CompileError, resp.Status)
	require.NotNil(t, resp.ErrorMessage)
	assert.Equal(t, diag, *resp.ErrorMessage)
	for _, tc := range resp.Results {
		assert.Empty(t, tc.Status)
	}
}

func TestBuilderCancelled(t *testing.T) {
	b := respbuilder.New("b3", cases())

	b.StartJob("b3", 3)
	b.FinishTest(api.TestResult{ID: 10, Status: api.Accepted})
	b.IgnoreTest(20)
	b.IgnoreTest(30)
	b.Cancelled()

	resp := b.Response()
	assert.Equal(t, api.Cancelled, resp.Status)
	assert.Equal(t, api.Accepted, resp.Results[0].Status)
	assert.Empty(t, resp.Results[1].Status)
}
