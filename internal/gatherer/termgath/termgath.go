// Package termgath prints batch progress for a human in a terminal.
package termgath

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/programme-lv/cprun/api"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	dimColor  = color.New(color.Faint)
)

type TerminalGatherer struct {
	out       io.Writer
	startedAt time.Time
	counts    map[api.Verdict]int
	ignored   int
	// print actual output and diagnostics of failed tests
	verbose bool
}

func New(verbose bool) *TerminalGatherer {
	return NewWithWriter(os.Stdout, verbose)
}

func NewWithWriter(out io.Writer, verbose bool) *TerminalGatherer {
	return &TerminalGatherer{
		out:       out,
		startedAt: time.Now(),
		counts:    make(map[api.Verdict]int),
		verbose:   verbose,
	}
}

func (t *TerminalGatherer) StartJob(batchUuid string, testCount int) {
	t.startedAt = time.Now()
	fmt.Fprintf(t.out, "== Batch %s: %d tests ==\n", batchUuid, testCount)
}

func (t *TerminalGatherer) StartCompile() {
	fmt.Fprintln(t.out, "-- Compiling --")
}

func (t *TerminalGatherer) FinishCompile(res api.CompileResult) {
	if res.Success {
		fmt.Fprintf(t.out, "-- Compiled in %dms --\n", res.WallMs)
		return
	}
	exit := -1
	if res.ExitCode != nil {
		exit = *res.ExitCode
	}
	fmt.Fprintf(t.out, "-- Compilation failed: exit=%d wall=%dms --\n", exit, res.WallMs)
}

func (t *TerminalGatherer) ReachTest(testId int64, input string) {}

func (t *TerminalGatherer) IgnoreTest(testId int64) {
	t.ignored++
	fmt.Fprintf(t.out, "   Test %d %s\n", testId, dimColor.Sprint("skipped"))
}

func (t *TerminalGatherer) FinishTest(res api.TestResult) {
	t.counts[res.Status]++
	fmt.Fprintf(t.out, "   Test %d %s %s\n", res.ID, verdictColor(res.Status).Sprintf("%-3s", res.Status),
		dimColor.Sprintf("%dms", res.WallMs))
	if !t.verbose || res.Status == api.Accepted {
		return
	}
	if res.ActualOutput != "" {
		fmt.Fprintf(t.out, "     output:\n%s\n", indent(res.ActualOutput))
	}
	if res.Error != nil && *res.Error != "" {
		fmt.Fprintf(t.out, "     error:\n%s\n", indent(*res.Error))
	}
	if res.Truncated {
		fmt.Fprintln(t.out, "     (output truncated)")
	}
}

func (t *TerminalGatherer) CompileError(msg string) {
	fmt.Fprintf(t.out, "== %s ==\n%s\n", failColor.Sprint("Compilation error"), strings.TrimRight(msg, "\n"))
}

func (t *TerminalGatherer) InternalError(msg string) {
	fmt.Fprintf(t.out, "== %s: %s ==\n", failColor.Sprint("Internal error"), msg)
}

func (t *TerminalGatherer) Cancelled() {
	fmt.Fprintf(t.out, "== %s after %s ==\n", warnColor.Sprint("Cancelled"), t.elapsed())
}

func (t *TerminalGatherer) FinishNoError() {
	parts := make([]string, 0, 4)
	for _, v := range []api.Verdict{api.Accepted, api.WrongAnswer, api.TimeLimitExceeded, api.RuntimeError} {
		if n := t.counts[v]; n > 0 {
			parts = append(parts, verdictColor(v).Sprintf("%d %s", n, v))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "no tests")
	}
	fmt.Fprintf(t.out, "== Finished in %s: %s ==\n", t.elapsed(), strings.Join(parts, ", "))
}

func (t *TerminalGatherer) elapsed() time.Duration {
	return time.Since(t.startedAt).Round(time.Millisecond)
}

func verdictColor(v api.Verdict) *color.Color {
	switch v {
	case api.Accepted:
		return okColor
	case api.TimeLimitExceeded:
		return warnColor
	default:
		return failColor
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "       " + line
	}
	return strings.Join(lines, "\n")
}
