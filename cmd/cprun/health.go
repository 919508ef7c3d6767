package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/fatih/color"
	"github.com/google/shlex"
	"github.com/nats-io/nats.go"
	"github.com/programme-lv/cprun/internal/config"
	"github.com/urfave/cli/v3"
)

type healthRow struct {
	unit    string
	ok      bool
	message string
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "check that the compiler, artifact dir and NATS server are usable",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "nats", Usage: "also check the NATS connection"},
		},
		Action: healthAction,
	}
}

func healthAction(ctx context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rows := []healthRow{
		checkCompiler(cfg.CompileCmd),
		checkArtifactDir(cfg.ArtifactDir),
	}
	if cmd.Bool("nats") {
		rows = append(rows, checkNats(cfg.NatsURL))
	}

	failed := false
	for _, row := range rows {
		status := color.GreenString("OK ")
		if !row.ok {
			status = color.RedString("ERR")
			failed = true
		}
		fmt.Printf("%s  %-12s %s\n", status, row.unit, row.message)
	}
	if failed {
		return cli.Exit("", 1)
	}
	return nil
}

func checkCompiler(template string) healthRow {
	row := healthRow{unit: "compiler"}
	fields, err := shlex.Split(template)
	if err != nil || len(fields) == 0 {
		row.message = fmt.Sprintf("bad compile command %q", template)
		return row
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		row.message = err.Error()
		return row
	}
	row.ok = true
	row.message = path
	return row
}

func checkArtifactDir(dir string) healthRow {
	row := healthRow{unit: "artifact dir"}
	f, err := os.CreateTemp(dir, config.AppName+"_health_")
	if err != nil {
		row.message = err.Error()
		return row
	}
	f.Close()
	if err := os.Remove(f.Name()); err != nil {
		row.message = err.Error()
		return row
	}
	row.ok = true
	row.message = dir
	return row
}

func checkNats(url string) healthRow {
	row := healthRow{unit: "nats"}
	nc, err := nats.Connect(url, nats.Timeout(3*time.Second))
	if err != nil {
		row.message = err.Error()
		return row
	}
	defer nc.Close()
	if err := nc.FlushTimeout(3 * time.Second); err != nil {
		row.message = err.Error()
		return row
	}
	row.ok = true
	row.message = nc.ConnectedUrl()
	return row
}
