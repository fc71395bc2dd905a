package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/bakerybot/core/logger"

	retry "github.com/sethvargo/go-retry"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

const (
	defaultQueueSize    = 256
	defaultWorkers      = 4
	defaultRetryBackoff = 2 * time.Second
	defaultMaxDuration  = 12 * time.Second
	// maxFloodWait caps how long a job honours a Telegram retry_after hint.
	maxFloodWait = 30 * time.Second
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	QueueSize  int
	Workers    int
	MaxRetries int
	// RetryBackoff seeds a Fibonacci backoff between attempts.
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = defaultRetryBackoff
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = defaultMaxDuration
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
// Replies to customers and order posts to the staff chat share its queue.
type Dispatcher struct {
	opts Options
	jobs chan job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	errs atomic.Uint64
	sent atomic.Uint64
}

// NewDispatcher starts a dispatcher with defaults for zeroed options.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go d.worker()
	}
	return d
}

// Enqueue schedules run for asynchronous execution. run must be idempotent
// when retries are enabled.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Submit enqueues run on d, or runs it inline when d is nil, full or
// closed. Only errors of an inline run are returned.
func Submit(ctx context.Context, d *Dispatcher, action, endpoint string, run func() error) error {
	if d == nil {
		return run()
	}
	err := d.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("status", "skip"),
			slog.String("action", action),
			slog.String("reason", err.Error()),
		)
		return run()
	}
	return err
}

// ErrorCount returns the number of failed jobs.
func (d *Dispatcher) ErrorCount() uint64 { return d.errs.Load() }

// SentCount returns the number of jobs that eventually succeeded.
func (d *Dispatcher) SentCount() uint64 { return d.sent.Load() }

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.handleJob(j)
	}
}

// floodBackoff wraps a backoff so a Telegram retry_after hint raises the
// next delay.
type floodBackoff struct {
	next  retry.Backoff
	floor time.Duration
}

func (b *floodBackoff) Next() (time.Duration, bool) {
	delay, stop := b.next.Next()
	if stop {
		return 0, true
	}
	if b.floor > delay {
		delay = b.floor
	}
	b.floor = 0
	return delay, false
}

func (d *Dispatcher) backoff() *floodBackoff {
	b := retry.NewFibonacci(d.opts.RetryBackoff)
	b = retry.WithMaxRetries(uint64(d.opts.MaxRetries), b)
	return &floodBackoff{next: b}
}

func (d *Dispatcher) handleJob(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	deadlineCtx, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	logger.Debug(ctx, "tg.sender", "send.start", sendLogAttrs(ctx, j)...)

	b := d.backoff()
	attempt := 0
	err := retry.Do(deadlineCtx, b, func(context.Context) error {
		attempt++
		err := j.run()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if wait := floodWait(err); wait > 0 {
			b.floor = min(wait, maxFloodWait)
		}
		logger.Debug(ctx, "tg.sender", "send.retry",
			append(sendLogAttrs(ctx, j),
				slog.Int("attempt", attempt),
				slog.String("err_code", classifyError(err)),
			)...,
		)
		return retry.RetryableError(err)
	})

	if err != nil {
		d.errs.Add(1)
		logSendFailure(ctx, j, err, attempt, time.Since(start))
		return
	}
	d.sent.Add(1)
	logSendSuccess(ctx, j, attempt, time.Since(start))
}

func sendLogAttrs(ctx context.Context, j job) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	if rid := logger.RIDFrom(ctx); rid != "" {
		attrs = append(attrs, slog.String("rid", rid))
	}
	if chatID := logger.ChatIDFrom(ctx); chatID != 0 {
		attrs = append(attrs, slog.Int64("chat_id", chatID))
	}
	return attrs
}

func logSendSuccess(ctx context.Context, j job, attempts int, elapsed time.Duration) {
	attrs := append(sendLogAttrs(ctx, j),
		slog.String("status", "ok"),
		slog.Duration("elapsed", elapsed),
	)
	if attempts > 1 {
		attrs = append(attrs, slog.Int("attempts", attempts))
		logger.Info(ctx, "tg.sender", "send.retry.success", attrs...)
		return
	}
	logger.Debug(ctx, "tg.sender", "send.success", attrs...)
}

func logSendFailure(ctx context.Context, j job, err error, attempts int, elapsed time.Duration) {
	attrs := append(sendLogAttrs(ctx, j),
		slog.String("status", "fail"),
		slog.String("err", sanitizeErrorMessage(err)),
		slog.String("err_code", classifyError(err)),
		slog.Duration("elapsed", elapsed),
		slog.Int("attempts", attempts),
	)
	logger.Error(ctx, "tg.sender", "send.fail", attrs...)
}
