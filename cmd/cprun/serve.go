package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/programme-lv/cprun/internal/gatherer/sqsgath"
	"github.com/programme-lv/cprun/internal/natsworker"
	"github.com/programme-lv/cprun/internal/tester"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve batch requests received over NATS",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "nats-url", Usage: "NATS server url"},
			&cli.StringFlag{Name: "subject", Usage: "subject prefix for run and cancel requests"},
			&cli.StringFlag{Name: "results-sqs-url", Usage: "SQS queue that also receives every result"},
			&cli.DurationFlag{Name: "grace", Value: 30 * time.Second, Usage: "time running batches get to finish on shutdown"},
		},
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("nats-url") {
		cfg.NatsURL = cmd.String("nats-url")
	}
	if cmd.IsSet("subject") {
		cfg.NatsSubject = cmd.String("subject")
	}
	if cmd.IsSet("results-sqs-url") {
		cfg.ResultsSqsUrl = cmd.String("results-sqs-url")
	}

	logger.Info("Connecting to NATS...", "url", cfg.NatsURL)
	nc, err := nats.Connect(cfg.NatsURL, nats.Name("cprun"), nats.MaxReconnects(-1))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Drain()
	logger.Info("Connected to NATS")

	workerCfg := natsworker.Config{Subject: cfg.NatsSubject}
	if cfg.ResultsSqsUrl != "" {
		client, err := sqsgath.NewClient(ctx, cfg.AwsRegion)
		if err != nil {
			return err
		}
		queueUrl := cfg.ResultsSqsUrl
		workerCfg.Extra = func(ctx context.Context, batchUuid string) tester.ResultGatherer {
			return sqsgath.New(ctx, client, queueUrl, batchUuid, logger)
		}
		logger.Info("Streaming results to SQS", "queue", queueUrl)
	}

	w := natsworker.New(logger, nc, newTester(cfg, logger), workerCfg)
	return w.Run(ctx, cmd.Duration("grace"))
}
