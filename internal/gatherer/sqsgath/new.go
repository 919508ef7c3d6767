// Package sqsgath sends batch stream messages to an SQS queue for
// collaborators that poll for results instead of holding a NATS inbox.
package sqsgath

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/programme-lv/cprun/internal/gatherer/natsgath"
	"github.com/programme-lv/cprun/internal/tester"
)

// SendMessageAPI is the part of *sqs.Client the gatherer needs.
type SendMessageAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// NewClient loads the default AWS configuration for region.
func NewClient(ctx context.Context, region string) (*sqs.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return sqs.NewFromConfig(cfg), nil
}

// New returns a gatherer that sends every message of batchUuid to queueUrl.
func New(ctx context.Context, client SendMessageAPI, queueUrl string, batchUuid string, logger *slog.Logger) tester.ResultGatherer {
	q := &queue{ctx: ctx, client: client}
	return natsgath.New(q, batchUuid, queueUrl, logger)
}
