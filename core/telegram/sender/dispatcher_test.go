package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func fastDispatcher(retries int) *Dispatcher {
	return NewDispatcher(Options{
		QueueSize:    4,
		Workers:      1,
		MaxRetries:   retries,
		RetryBackoff: time.Millisecond,
		MaxDuration:  time.Second,
	})
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := fastDispatcher(3)
	var calls atomic.Int32
	err := d.Enqueue(context.Background(), "order.notify", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return &tele.Error{Code: 502, Description: "Bad Gateway"}
		}
		return nil
	})
	require.NoError(t, err)
	d.Close()

	assert.EqualValues(t, 3, calls.Load())
	assert.EqualValues(t, 1, d.SentCount())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherStopsOnPermanentError(t *testing.T) {
	d := fastDispatcher(5)
	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		calls.Add(1)
		return &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}
	}))
	d.Close()

	assert.EqualValues(t, 1, calls.Load())
	assert.EqualValues(t, 1, d.ErrorCount())
}

func TestDispatcherGivesUpAfterMaxRetries(t *testing.T) {
	d := fastDispatcher(2)
	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		calls.Add(1)
		return &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	}))
	d.Close()

	assert.EqualValues(t, 3, calls.Load())
	assert.EqualValues(t, 1, d.ErrorCount())
}

func TestEnqueueAfterClose(t *testing.T) {
	d := fastDispatcher(0)
	d.Close()
	d.Close()
	assert.ErrorIs(t, d.Enqueue(context.Background(), "a", "b", func() error { return nil }), ErrQueueClosed)
	assert.Error(t, NewDispatcher(Options{}).Enqueue(context.Background(), "a", "b", nil))
}

func TestEnqueueQueueFull(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 1, Workers: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	block := func() error {
		close(started)
		<-release
		return nil
	}
	require.NoError(t, d.Enqueue(context.Background(), "a", "", block))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), "b", "", func() error { return nil }))
	assert.ErrorIs(t, d.Enqueue(context.Background(), "c", "", func() error { return nil }), ErrQueueFull)
	close(release)
	d.Close()
	assert.EqualValues(t, 2, d.SentCount())
}

func TestFloodBackoffRaisesNextDelay(t *testing.T) {
	b := fastDispatcher(2).backoff()
	b.floor = 3 * time.Second
	delay, stop := b.Next()
	require.False(t, stop)
	assert.Equal(t, 3*time.Second, delay)

	delay, stop = b.Next()
	require.False(t, stop)
	assert.Less(t, delay, time.Second)

	_, stop = b.Next()
	assert.True(t, stop)
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "", classifyError(nil))
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "flood", classifyError(tele.FloodError{RetryAfter: 5}))
	assert.Equal(t, "dial", classifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, "dns", classifyError(&net.DNSError{Err: "no such host", Name: "api.telegram.org"}))
	assert.Equal(t, "forbidden", classifyError(&tele.Error{Code: 403}))
	assert.Equal(t, "http_4xx", classifyError(&tele.Error{Code: 400}))
	assert.Equal(t, "http_5xx", classifyError(errors.New("telegram: internal (500)")))
	assert.Equal(t, "unknown", classifyError(errors.New("boom")))
}

func TestRetryableAndFloodWait(t *testing.T) {
	assert.True(t, retryable(tele.FloodError{RetryAfter: 2}))
	assert.Equal(t, 2*time.Second, floodWait(tele.FloodError{RetryAfter: 2}))
	assert.True(t, retryable(&tele.Error{Code: 500}))
	assert.False(t, retryable(&tele.Error{Code: 400}))
	assert.False(t, retryable(nil))
	assert.Zero(t, floodWait(errors.New("x")))
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_CC/sendMessage": timeout`)
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout`, sanitizeErrorMessage(err))
}

func TestSubmitFallsBackToInlineRun(t *testing.T) {
	var calls atomic.Int32
	run := func() error { calls.Add(1); return nil }

	require.NoError(t, Submit(context.Background(), nil, "send.text", "sendMessage", run))
	assert.EqualValues(t, 1, calls.Load())

	d := fastDispatcher(0)
	d.Close()
	require.NoError(t, Submit(context.Background(), d, "send.text", "sendMessage", run))
	assert.EqualValues(t, 2, calls.Load())

	bad := errors.New("blocked")
	assert.Same(t, bad, Submit(context.Background(), d, "send.text", "sendMessage", func() error { return bad }))
}
