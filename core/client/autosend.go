package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/botkit/core/logger"
)

var (
	// ErrQueueClosed is returned when a send is attempted after Close.
	ErrQueueClosed = errors.New("client: send queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("client: send queue full")
)

// AutoSendOptions controls the behaviour of the asynchronous sender.
type AutoSendOptions struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the total time spent on a single job including
	// retries.
	MaxDuration time.Duration
	// Retryable decides whether a failed call may be retried. Defaults to
	// ShouldRetry.
	Retryable func(error) bool
}

type sendJob struct {
	ctx     context.Context
	method  string
	payload any
}

// AutoSender executes calls asynchronously on a worker pool with bounded
// retries. Callers that do not need the response use Send and move on; the
// sender owns delivery from there.
type AutoSender struct {
	inner Caller
	opts  AutoSendOptions
	jobs  chan sendJob
	wg    sync.WaitGroup
	errs  atomic.Uint64

	// mu orders enqueues against Close so the jobs channel is never
	// written after it is closed.
	mu     sync.Mutex
	closed bool
}

// AutoSend starts an asynchronous sender over c with sane defaults for
// zeroed options.
func AutoSend(c Caller, opts AutoSendOptions) *AutoSender {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}
	if opts.Retryable == nil {
		opts.Retryable = ShouldRetry
	}

	a := &AutoSender{
		inner: c,
		opts:  opts,
		jobs:  make(chan sendJob, opts.QueueSize),
	}

	a.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go a.worker()
	}
	return a
}

// Send queues the call for asynchronous execution. It never blocks: a full
// queue returns ErrQueueFull and the job is dropped. Safe to call
// concurrently with Close.
func (a *AutoSender) Send(ctx context.Context, method string, payload any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrQueueClosed
	}

	select {
	case a.jobs <- sendJob{ctx: ctx, method: method, payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Call queues the call and reports no body. It exists so an AutoSender can
// terminate an adaptor stack where the response is never read.
func (a *AutoSender) Call(ctx context.Context, method string, payload any) ([]byte, error) {
	if err := a.Send(ctx, method, payload); err != nil {
		return nil, err
	}
	return nil, nil
}

// ErrorCount returns the number of jobs that exhausted their retries.
func (a *AutoSender) ErrorCount() uint64 {
	return a.errs.Load()
}

// Close stops accepting jobs and waits for the queue to drain. Idempotent.
func (a *AutoSender) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.jobs)
	a.mu.Unlock()

	a.wg.Wait()
}

func (a *AutoSender) worker() {
	defer a.wg.Done()
	for j := range a.jobs {
		a.handle(j)
	}
}

func (a *AutoSender) handle(j sendJob) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	// The queued call outlives the producer's request scope.
	ctx = context.WithoutCancel(ctx)

	deadlineCtx, cancel := context.WithTimeout(ctx, a.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := a.opts.MaxRetries + 1

	var lastErr error

attemptLoop:
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := deadlineCtx.Err(); err != nil {
			lastErr = err
			break
		}

		_, err := a.inner.Call(deadlineCtx, j.method, j.payload)
		if err == nil {
			if attempt > 1 {
				logger.Info(ctx, "wire", "send.retry.success",
					slog.String("method", j.method),
					slog.Int("attempt", attempt),
					slog.Duration("duration", logger.Took(start)),
				)
			}
			return
		}
		lastErr = err
		if !a.opts.Retryable(err) || attempt == attempts {
			break
		}

		delay := a.opts.RetryBackoff * time.Duration(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-deadlineCtx.Done():
			timer.Stop()
			lastErr = deadlineCtx.Err()
			break attemptLoop
		case <-timer.C:
			logger.Debug(ctx, "wire", "send.retry.backoff",
				slog.String("method", j.method),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
			)
		}
	}

	a.errs.Add(1)
	logger.Error(ctx, "wire", "send.fail",
		slog.String("method", j.method),
		slog.String("err", logger.SanitizeLimit(lastErr.Error(), 256)),
		slog.Int("attempts", attempts),
		slog.Duration("duration", logger.Took(start)),
	)
}
