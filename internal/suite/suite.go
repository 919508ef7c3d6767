// Package suite reads test suites written in TOML and turns them into batch
// requests.
package suite

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pelletier/go-toml/v2"
	"github.com/programme-lv/cprun/api"
)

// SpecTest is a single test case in the suite file. Every text is given
// either inline or as a file path relative to the suite file.
type SpecTest struct {
	ID      *int64  `toml:"id"`
	In      *string `toml:"in"`
	InFile  string  `toml:"in_file"`
	Ans     *string `toml:"ans"`
	AnsFile string  `toml:"ans_file"`
	// Verdict the test is expected to get, AC when empty
	Verdict string `toml:"verdict"`
}

type specRoot struct {
	Source     string     `toml:"source"`
	CompileCmd string     `toml:"compile_cmd"`
	TimeoutMs  int        `toml:"timeout_ms"`
	Tests      []SpecTest `toml:"tests"`
}

// Suite is a parsed suite file.
type Suite struct {
	// Absolute when set in the file, empty otherwise
	SourcePath string
	CompileCmd *string
	TimeoutMs  int
	Tests      []api.TestCase
	// Expected verdict per test id
	Expect map[int64]api.Verdict
}

// Request builds a batch request for the suite. sourcePath overrides the
// source named in the file when not empty.
func (s *Suite) Request(batchUuid string, sourcePath string) api.BatchReq {
	if sourcePath == "" {
		sourcePath = s.SourcePath
	}
	return api.BatchReq{
		BatchUuid:  batchUuid,
		SourcePath: sourcePath,
		CompileCmd: s.CompileCmd,
		TimeoutMs:  s.TimeoutMs,
		Tests:      s.Tests,
	}
}

// Mismatches lists the cases whose verdict differs from the expected one.
func (s *Suite) Mismatches(cases []api.TestCase) []api.TestCase {
	var res []api.TestCase
	for _, tc := range cases {
		want, ok := s.Expect[tc.ID]
		if !ok {
			want = api.Accepted
		}
		if tc.Status != want {
			res = append(res, tc)
		}
	}
	return res
}

// Parse reads a suite TOML file. Relative paths inside it are resolved
// against the directory of the file.
func Parse(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	var root specRoot
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	dir := filepath.Dir(path)
	s := &Suite{
		TimeoutMs: root.TimeoutMs,
		Tests:     make([]api.TestCase, 0, len(root.Tests)),
		Expect:    make(map[int64]api.Verdict),
	}
	if root.Source != "" {
		s.SourcePath, err = filepath.Abs(resolve(dir, root.Source))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve source path: %w", err)
		}
	}
	if root.CompileCmd != "" {
		cmd := root.CompileCmd
		s.CompileCmd = &cmd
	}
	if root.TimeoutMs < 0 {
		return nil, fmt.Errorf("timeout_ms must not be negative, got %d", root.TimeoutMs)
	}

	for i, st := range root.Tests {
		id := int64(i + 1)
		if st.ID != nil {
			id = *st.ID
		}
		in, err := text(dir, st.In, st.InFile)
		if err != nil {
			return nil, fmt.Errorf("test %d input: %w", id, err)
		}
		ans, err := text(dir, st.Ans, st.AnsFile)
		if err != nil {
			return nil, fmt.Errorf("test %d answer: %w", id, err)
		}
		if st.Verdict != "" {
			v := api.Verdict(strings.ToUpper(st.Verdict))
			if !v.Valid() {
				return nil, fmt.Errorf("test %d: unknown verdict %q", id, st.Verdict)
			}
			s.Expect[id] = v
		}
		s.Tests = append(s.Tests, api.TestCase{ID: id, Input: in, ExpectedOutput: ans})
	}
	return s, nil
}

func text(dir string, inline *string, file string) (string, error) {
	switch {
	case inline != nil && file != "":
		return "", errors.New("inline text and file are mutually exclusive")
	case inline != nil:
		return *inline, nil
	case file != "":
		return ReadFile(resolve(dir, file))
	default:
		return "", nil
	}
}

func resolve(dir string, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// ReadFile reads a test file, decompressing it when its name ends in .zst.
func ReadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open test file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		d, err := zstd.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer d.Close()
		r = d
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read test file %s: %w", path, err)
	}
	return string(b), nil
}
