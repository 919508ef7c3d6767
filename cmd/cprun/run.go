package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/programme-lv/cprun/internal/compile"
	"github.com/programme-lv/cprun/internal/gatherer/respbuilder"
	"github.com/programme-lv/cprun/internal/gatherer/termgath"
	"github.com/programme-lv/cprun/internal/suite"
	"github.com/programme-lv/cprun/internal/tester"
	"github.com/urfave/cli/v3"
)

const (
	exitMismatch     = 1
	exitCompileError = 2
	exitCancelled    = 130
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "run the tests of a suite file against a source file",
		ArgsUsage: "SUITE [SOURCE]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the whole batch response as JSON"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "print output of failed tests"},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return fmt.Errorf("missing suite file")
	}
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := suite.Parse(cmd.Args().Get(0))
	if err != nil {
		return err
	}
	req := s.Request(uuid.NewString(), cmd.Args().Get(1))
	if req.SourcePath == "" {
		return fmt.Errorf("no source file given on the command line or in the suite")
	}

	var gath tester.ResultGatherer
	var builder *respbuilder.Builder
	if cmd.Bool("json") {
		builder = respbuilder.New(req.BatchUuid, req.Tests)
		gath = builder
	} else {
		gath = termgath.New(cmd.Bool("verbose"))
	}

	cases, err := newTester(cfg, logger).RunBatch(ctx, req, gath)

	if builder != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(builder.Response()); encErr != nil {
			return fmt.Errorf("failed to encode response: %w", encErr)
		}
	}

	var compileErr *compile.Error
	switch {
	case errors.As(err, &compileErr):
		return cli.Exit("", exitCompileError)
	case errors.Is(err, tester.ErrCancelled):
		return cli.Exit("", exitCancelled)
	case err != nil:
		return err
	}

	if mismatches := s.Mismatches(cases); len(mismatches) > 0 {
		logger.Debug("Unexpected verdicts", "count", len(mismatches))
		return cli.Exit("", exitMismatch)
	}
	return nil
}
