package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/programme-lv/cprun/internal/compile"
	"github.com/programme-lv/cprun/internal/config"
	"github.com/programme-lv/cprun/internal/logging"
	"github.com/programme-lv/cprun/internal/runner"
	"github.com/programme-lv/cprun/internal/tester"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "cprun",
		Usage: "compile a solution once and judge it against test cases",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file, defaults to " + config.DefaultPath(),
			},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.IntFlag{Name: "timeout", Usage: "per-test wall clock limit in milliseconds"},
			&cli.StringFlag{Name: "compile-cmd", Usage: "compile command template with {src} and {bin}"},
			&cli.IntFlag{Name: "parallel", Usage: "test cases run at the same time"},
		},
		Commands: []*cli.Command{
			runCommand(),
			serveCommand(),
			healthCommand(),
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies command line overrides.
func loadConfig(cmd *cli.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return config.Config{}, nil, err
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("timeout") {
		cfg.TimeoutMs = cmd.Int("timeout")
	}
	if cmd.IsSet("compile-cmd") {
		cfg.CompileCmd = cmd.String("compile-cmd")
	}
	if cmd.IsSet("parallel") {
		cfg.MaxParallel = cmd.Int("parallel")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	logger, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newTester(cfg config.Config, logger *slog.Logger) *tester.Tester {
	c := compile.New(logger, compile.Config{
		Command:     cfg.CompileCmd,
		Timeout:     cfg.CompileTimeout(),
		ArtifactDir: cfg.ArtifactDir,
	})
	r := runner.New(logger, cfg.MaxOutputBytes)
	return tester.NewTester(logger, c, r, tester.Config{
		Timeout:     cfg.Timeout(),
		MaxParallel: cfg.MaxParallel,
	})
}
