// Package compile turns one source file into one executable by running an
// external compiler command.
package compile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/google/uuid"
)

const (
	DefaultCommand = "g++ -o {bin} {src}"
	DefaultTimeout = 60 * time.Second

	srcPlaceholder = "{src}"
	binPlaceholder = "{bin}"
	artifactPrefix = "cprun_exec_"
)

// Error is a failed compilation. Diagnostic holds the compiler's raw output.
type Error struct {
	Diagnostic string
	ExitCode   int
}

func (e *Error) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("compilation failed with exit code %d", e.ExitCode)
	}
	return fmt.Sprintf("compilation failed with exit code %d: %s", e.ExitCode, e.Diagnostic)
}

type Compiler struct {
	command     string
	timeout     time.Duration
	artifactDir string
	logger      *slog.Logger
}

type Config struct {
	// Command template, {src} and {bin} are replaced per argument
	Command     string
	Timeout     time.Duration
	ArtifactDir string
}

func New(logger *slog.Logger, cfg Config) *Compiler {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ArtifactDir == "" {
		cfg.ArtifactDir = os.TempDir()
	}
	// relative to our working directory, the compiler runs in the source's
	if abs, err := filepath.Abs(cfg.ArtifactDir); err == nil {
		cfg.ArtifactDir = abs
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{
		command:     cfg.Command,
		timeout:     cfg.Timeout,
		artifactDir: cfg.ArtifactDir,
		logger:      logger,
	}
}

// ArtifactPath returns a path no other batch will ever use.
func (c *Compiler) ArtifactPath() string {
	name := artifactPrefix + uuid.NewString()
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(c.artifactDir, name)
}

// Compile builds srcPath into dstPath using the configured command template.
func (c *Compiler) Compile(ctx context.Context, srcPath string, dstPath string) error {
	return c.CompileWith(ctx, c.command, srcPath, dstPath)
}

// CompileWith is Compile with an explicit command template.
// A template that does not parse, a compiler that could not run or one that
// returned non-zero yields *Error.
func (c *Compiler) CompileWith(ctx context.Context, template string, srcPath string, dstPath string) error {
	srcPath, err := filepath.Abs(srcPath)
	if err != nil {
		return fmt.Errorf("failed to resolve source path: %w", err)
	}
	dstPath, err = filepath.Abs(dstPath)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}
	args, err := BuildCommand(template, srcPath, dstPath)
	if err != nil {
		return &Error{Diagnostic: err.Error(), ExitCode: -1}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = filepath.Dir(srcPath)
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.WaitDelay = time.Second

	c.logger.Info("Compiling...", "src", srcPath, "cmd", strings.Join(args, " "))
	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return &Error{
					Diagnostic: fmt.Sprintf("compiler did not finish within %s\n%s", c.timeout, output.String()),
					ExitCode:   -1,
				}
			}
			return ctxErr
		}

		diag := output.String()
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else if diag == "" {
			diag = err.Error()
		}
		c.logger.Info("Compilation failed", "src", srcPath, "exit", exitCode, "elapsed", elapsed)
		return &Error{Diagnostic: diag, ExitCode: exitCode}
	}

	if _, err := os.Stat(dstPath); err != nil {
		return &Error{
			Diagnostic: fmt.Sprintf("compiler produced no executable at %s\n%s", dstPath, output.String()),
			ExitCode:   0,
		}
	}

	c.logger.Info("Compiled", "src", srcPath, "bin", dstPath, "elapsed", elapsed)
	return nil
}

// BuildCommand splits template into arguments and then substitutes the
// placeholders, so paths containing spaces stay one argument.
func BuildCommand(template string, srcPath string, dstPath string) ([]string, error) {
	if strings.TrimSpace(template) == "" {
		return nil, fmt.Errorf("compile command template is empty")
	}
	fields, err := shlex.Split(template)
	if err != nil {
		return nil, fmt.Errorf("failed to parse compile command template: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("compile command template has no arguments")
	}
	args := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, srcPlaceholder, srcPath)
		f = strings.ReplaceAll(f, binPlaceholder, dstPath)
		args = append(args, f)
	}
	return args, nil
}
