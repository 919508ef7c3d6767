// Package natsworker serves batch requests that arrive over NATS and
// streams their progress back to the requester's inbox.
package natsworker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/programme-lv/cprun/api"
	"github.com/programme-lv/cprun/internal/gatherer/natsgath"
	"github.com/programme-lv/cprun/internal/tester"
)

const QueueGroup = "cprun"

// Conn is the part of *nats.Conn the worker needs.
type Conn interface {
	natsgath.Publisher
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	QueueSubscribe(subj string, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
}

var _ Conn = (*nats.Conn)(nil)

type Config struct {
	// Requests are read from <Subject>.run and <Subject>.cancel
	Subject string
	// Extra returns an additional gatherer for a batch, e.g. a results queue.
	// May be nil.
	Extra func(ctx context.Context, batchUuid string) tester.ResultGatherer
}

type Worker struct {
	conn    Conn
	tester  *tester.Tester
	subject string
	extra   func(ctx context.Context, batchUuid string) tester.ResultGatherer
	logger  *slog.Logger

	// context of running batches, cancelled when shutdown runs out of time
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	subs    []*nats.Subscription
	batches sync.WaitGroup
}

func New(logger *slog.Logger, conn Conn, t *tester.Tester, cfg Config) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		conn:    conn,
		tester:  t,
		subject: cfg.Subject,
		extra:   cfg.Extra,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *Worker) RunSubject() string    { return w.subject + ".run" }
func (w *Worker) CancelSubject() string { return w.subject + ".cancel" }

// Start subscribes to the run and cancel subjects.
func (w *Worker) Start() error {
	w.logger.Info("Subscribing...", "run", w.RunSubject(), "cancel", w.CancelSubject(), "queue", QueueGroup)
	runSub, err := w.conn.QueueSubscribe(w.RunSubject(), QueueGroup, w.HandleRun)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", w.RunSubject(), err)
	}
	w.subs = append(w.subs, runSub)

	// every worker must see cancel requests, so no queue group here
	cancelSub, err := w.conn.Subscribe(w.CancelSubject(), w.HandleCancel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", w.CancelSubject(), err)
	}
	w.subs = append(w.subs, cancelSub)
	return nil
}

// Run starts the worker and blocks until ctx is done, then shuts down
// giving running batches grace to finish.
func (w *Worker) Run(ctx context.Context, grace time.Duration) error {
	if err := w.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return w.Shutdown(sctx)
}

// Shutdown stops accepting requests and waits for running batches. When ctx
// is done first the batches are cancelled and waited for.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	for _, sub := range w.subs {
		if err := sub.Unsubscribe(); err != nil {
			w.logger.Debug("failed to unsubscribe", "error", err)
		}
	}
	w.subs = nil

	done := make(chan struct{})
	go func() {
		w.batches.Wait()
		close(done)
	}()

	w.logger.Info("Waiting for running batches...", "count", w.tester.Running())
	select {
	case <-done:
		w.cancel()
		return nil
	case <-ctx.Done():
		w.logger.Warn("Cancelling running batches")
		w.cancel()
		<-done
		return ctx.Err()
	}
}

// HandleRun starts the batch in msg without waiting for it. Progress goes to
// msg.Reply when set.
func (w *Worker) HandleRun(msg *nats.Msg) {
	var req api.BatchReq
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		w.logger.Error("failed to unmarshal batch request", "error", err)
		w.reject(msg.Reply, "", fmt.Sprintf("failed to unmarshal batch request: %v", err))
		return
	}
	if req.BatchUuid == "" {
		req.BatchUuid = uuid.NewString()
	}
	logger := w.logger.With("batch", req.BatchUuid)

	var gaths tester.Tee
	if msg.Reply != "" {
		gaths = append(gaths, natsgath.New(w.conn, req.BatchUuid, msg.Reply, logger))
	}
	if w.extra != nil {
		if g := w.extra(w.ctx, req.BatchUuid); g != nil {
			gaths = append(gaths, g)
		}
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		gaths.InternalError("worker is shutting down")
		return
	}
	w.batches.Add(1)
	w.mu.Unlock()

	logger.Info("Received batch", "source", req.SourcePath, "tests", len(req.Tests))
	go func() {
		defer w.batches.Done()
		cases, err := w.tester.RunBatch(w.ctx, req, gaths)
		if err != nil {
			logger.Info("Batch finished with error", "error", err)
			return
		}
		logger.Info("Batch finished", "tests", len(cases))
	}()
}

// HandleCancel cancels the batch named in msg and replies with api.CancelResp.
func (w *Worker) HandleCancel(msg *nats.Msg) {
	var req api.CancelReq
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		w.logger.Error("failed to unmarshal cancel request", "error", err)
		return
	}
	resp := api.CancelResp{
		BatchUuid: req.BatchUuid,
		Cancelled: w.tester.Cancel(req.BatchUuid),
	}
	w.logger.Info("Cancel requested", "batch", req.BatchUuid, "found", resp.Cancelled)
	if msg.Reply == "" {
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		w.logger.Error("failed to marshal cancel response", "error", err)
		return
	}
	if err := w.conn.Publish(msg.Reply, b); err != nil {
		w.logger.Error("failed to publish cancel response", "error", err)
	}
}

func (w *Worker) reject(inbox string, batchUuid string, errMsg string) {
	if inbox == "" {
		return
	}
	natsgath.New(w.conn, batchUuid, inbox, w.logger).InternalError(errMsg)
}
