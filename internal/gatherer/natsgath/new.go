package natsgath

import (
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Publisher is the part of *nats.Conn the gatherer needs.
type Publisher interface {
	Publish(subj string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// New creates a NATS gatherer that streams batch messages to the given inbox subject.
func New(nc Publisher, batchUuid string, inbox string, logger *slog.Logger) *natsGatherer {
	if logger == nil {
		logger = slog.Default()
	}
	return &natsGatherer{
		nc:        nc,
		inbox:     inbox,
		batchUuid: batchUuid,
		logger:    logger,
	}
}
