package natsworker_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/programme-lv/cprun/api"
	"github.com/programme-lv/cprun/internal/compile"
	"github.com/programme-lv/cprun/internal/natsworker"
	"github.com/programme-lv/cprun/internal/runner"
	"github.com/programme-lv/cprun/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	msgs     map[string][][]byte
	handlers map[string]nats.MsgHandler
	queues   map[string]string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		msgs:     make(map[string][][]byte),
		handlers: make(map[string]nats.MsgHandler),
		queues:   make(map[string]string),
	}
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[subj] = append(f.msgs[subj], data)
	return nil
}

func (f *fakeConn) Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error) {
	return f.QueueSubscribe(subj, "", cb)
}

func (f *fakeConn) QueueSubscribe(subj string, queue string, cb nats.MsgHandler) (*nats.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[subj] = cb
	f.queues[subj] = queue
	return nil, nil
}

func (f *fakeConn) published(subj string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.msgs[subj]...)
}

func newWorker(t *testing.T, conn *fakeConn) *natsworker.Worker {
	t.Helper()
	c := compile.New(nil, compile.Config{Command: "cp {src} {bin}", ArtifactDir: t.TempDir()})
	tst := tester.NewTester(nil, c, runner.New(nil, 0), tester.Config{Timeout: 2 * time.Second})
	return natsworker.New(nil, conn, tst, natsworker.Config{Subject: "cprun"})
}

func writeSource(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "main.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func lastFinishJob(t *testing.T, msgs [][]byte) api.FinishJob {
	t.Helper()
	require.NotEmpty(t, msgs)
	var job api.FinishJob
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1], &job))
	require.Equal(t, api.FinishJobMsg, job.MsgType)
	return job
}

func TestStartSubscribes(t *testing.T) {
	conn := newFakeConn()
	w := newWorker(t, conn)

	require.NoError(t, w.Start())
	assert.Contains(t, conn.handlers, "cprun.run")
	assert.Contains(t, conn.handlers, "cprun.cancel")
	assert.Equal(t, natsworker.QueueGroup, conn.queues["cprun.run"])
	assert.Empty(t, conn.queues["cprun.cancel"])
	require.NoError(t, w.Shutdown(context.Background()))
}

func TestHandleRunStreamsResults(t *testing.T) {
	src := writeSource(t, `read a b; echo $((a + b))`)
	conn := newFakeConn()
	w := newWorker(t, conn)

	req := api.BatchReq{
		BatchUuid:  "b1",
		SourcePath: src,
		Tests: []api.TestCase{
			{ID: 1, Input: "1 2", ExpectedOutput: "3"},
			{ID: 2, Input: "2 2", ExpectedOutput: "5"},
		},
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)

	w.HandleRun(&nats.Msg{Subject: "cprun.run", Reply: "_INBOX.1", Data: data})
	require.NoError(t, w.Shutdown(context.Background()))

	msgs := conn.published("_INBOX.1")
	job := lastFinishJob(t, msgs)
	assert.Equal(t, "b1", job.BatchUuid)
	assert.Equal(t, api.Success, job.Status)

	verdicts := make(map[int64]api.Verdict)
	for _, m := range msgs {
		var h api.Header
		require.NoError(t, json.Unmarshal(m, &h))
		if h.MsgType != api.FinishTestMsg {
			continue
		}
		var fin api.FinishTest
		require.NoError(t, json.Unmarshal(m, &fin))
		verdicts[fin.Result.ID] = fin.Result.Status
	}
	assert.Equal(t, map[int64]api.Verdict{1: api.Accepted, 2: api.WrongAnswer}, verdicts)
}

func TestHandleRunBadRequest(t *testing.T) {
	conn := newFakeConn()
	w := newWorker(t, conn)

	w.HandleRun(&nats.Msg{Subject: "cprun.run", Reply: "_INBOX.2", Data: []byte("{")})
	require.NoError(t, w.Shutdown(context.Background()))

	job := lastFinishJob(t, conn.published("_INBOX.2"))
	assert.Equal(t, api.InternalError, job.Status)
	require.NotNil(t, job.ErrorMessage)
}

func TestHandleRunAfterShutdown(t *testing.T) {
	conn := newFakeConn()
	w := newWorker(t, conn)
	require.NoError(t, w.Shutdown(context.Background()))

	data, err := json.Marshal(api.BatchReq{BatchUuid: "b3", SourcePath: "main.cpp"})
	require.NoError(t, err)
	w.HandleRun(&nats.Msg{Subject: "cprun.run", Reply: "_INBOX.3", Data: data})

	job := lastFinishJob(t, conn.published("_INBOX.3"))
	assert.Equal(t, api.InternalError, job.Status)
}

func TestHandleCancel(t *testing.T) {
	src := writeSource(t, `sleep 30`)
	conn := newFakeConn()
	w := newWorker(t, conn)

	req := api.BatchReq{
		BatchUuid:  "b4",
		SourcePath: src,
		TimeoutMs:  20_000,
		Tests:      []api.TestCase{{ID: 1}, {ID: 2}},
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	w.HandleRun(&nats.Msg{Subject: "cprun.run", Reply: "_INBOX.4", Data: data})

	// wait for the first test to start
	require.Eventually(t, func() bool {
		for _, m := range conn.published("_INBOX.4") {
			var h api.Header
			if json.Unmarshal(m, &h) == nil && h.MsgType == api.ReachTestMsg {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	cancelData, err := json.Marshal(api.CancelReq{BatchUuid: "b4"})
	require.NoError(t, err)
	w.HandleCancel(&nats.Msg{Subject: "cprun.cancel", Reply: "_INBOX.5", Data: cancelData})

	replies := conn.published("_INBOX.5")
	require.Len(t, replies, 1)
	var resp api.CancelResp
	require.NoError(t, json.Unmarshal(replies[0], &resp))
	assert.True(t, resp.Cancelled)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Shutdown(ctx))

	job := lastFinishJob(t, conn.published("_INBOX.4"))
	assert.Equal(t, api.Cancelled, job.Status)
}

func TestHandleCancelUnknown(t *testing.T) {
	conn := newFakeConn()
	w := newWorker(t, conn)

	data, err := json.Marshal(api.CancelReq{BatchUuid: "nope"})
	require.NoError(t, err)
	w.HandleCancel(&nats.Msg{Subject: "cprun.cancel", Reply: "_INBOX.6", Data: data})

	replies := conn.published("_INBOX.6")
	require.Len(t, replies, 1)
	var resp api.CancelResp
	require.NoError(t, json.Unmarshal(replies[0], &resp))
	assert.False(t, resp.Cancelled)
}

func TestShutdownCancelsAfterGrace(t *testing.T) {
	src := writeSource(t, `sleep 30`)
	conn := newFakeConn()
	w := newWorker(t, conn)

	data, err := json.Marshal(api.BatchReq{
		BatchUuid:  "b7",
		SourcePath: src,
		TimeoutMs:  20_000,
		Tests:      []api.TestCase{{ID: 1}},
	})
	require.NoError(t, err)
	w.HandleRun(&nats.Msg{Subject: "cprun.run", Reply: "_INBOX.7", Data: data})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = w.Shutdown(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)

	job := lastFinishJob(t, conn.published("_INBOX.7"))
	assert.Equal(t, api.Cancelled, job.Status)
}
