package termgath_test

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/programme-lv/cprun/api"
	"github.com/programme-lv/cprun/internal/gatherer/termgath"
	"github.com/stretchr/testify/assert"
)

func TestTerminalGatherer(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	g := termgath.NewWithWriter(&buf, true)

	stderr := "boom"
	g.StartJob("b1", 3)
	g.StartCompile()
	g.FinishCompile(api.CompileResult{Success: true, WallMs: 120})
	g.ReachTest(1, "1 2")
	g.FinishTest(api.TestResult{ID: 1, Status: api.Accepted, ActualOutput: "3\n", WallMs: 4})
	g.ReachTest(2, "1 1")
	g.FinishTest(api.TestResult{ID: 2, Status: api.RuntimeError, ActualOutput: "partial", Error: &stderr})
	g.IgnoreTest(3)
	g.FinishNoError()

	out := buf.String()
	assert.Contains(t, out, "== Batch b1: 3 tests ==")
	assert.Contains(t, out, "-- Compiled in 120ms --")
	assert.Contains(t, out, "Test 1 AC")
	assert.Contains(t, out, "Test 2 RTE")
	assert.Contains(t, out, "       partial")
	assert.Contains(t, out, "       boom")
	assert.Contains(t, out, "Test 3 skipped")
	assert.Contains(t, out, "1 AC, 1 RTE")
	assert.NotContains(t, out, "       3")
}

func TestTerminalGathererCompileError(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	g := termgath.NewWithWriter(&buf, false)

	code := 1
	g.StartJob("b2", 1)
	g.StartCompile()
	g.FinishCompile(api.CompileResult{Success: false, ExitCode: &code, WallMs: 30})
	g.CompileError("main.cpp:1:1: error: expected unqualified-id\n")

	out := buf.String()
	assert.Contains(t, out, "Compilation failed: exit=1 wall=30ms")
	assert.Contains(t, out, "== Compilation error ==\nmain.cpp:1:1: error: expected unqualified-id\n")
}
