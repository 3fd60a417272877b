package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/seantiz/errand/internal/automation"
	"github.com/seantiz/errand/internal/model"
	"github.com/seantiz/errand/internal/progress"
	"github.com/seantiz/errand/internal/store"
)

// Compile-time interface satisfaction check.
var _ Strategy = (*Background)(nil)

// Background runs jobs as goroutines of the serving process, reporting
// progress and the outcome through the job's caller. Terminal records are
// written to the result store only when one is attached.
type Background struct {
	engine  automation.Engine
	sem     *semaphore.Weighted
	results *store.ResultStore
	logger  *slog.Logger
	wg      sync.WaitGroup

	// stop cancels every running job on Shutdown.
	stopCtx context.Context
	stop    context.CancelFunc
}

// BackgroundOption configures a Background strategy.
type BackgroundOption func(*Background)

// WithResultStore makes the strategy record each job's outcome in results.
func WithResultStore(results *store.ResultStore) BackgroundOption {
	return func(b *Background) { b.results = results }
}

// NewBackground creates a background strategy running at most maxJobs jobs
// at once.
func NewBackground(engine automation.Engine, maxJobs int64, logger *slog.Logger, opts ...BackgroundOption) *Background {
	if maxJobs < 1 {
		maxJobs = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	stopCtx, stop := context.WithCancel(context.Background())
	b := &Background{
		engine:  engine,
		sem:     semaphore.NewWeighted(maxJobs),
		logger:  logger,
		stopCtx: stopCtx,
		stop:    stop,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Capabilities reports that background jobs are attached to the serving
// process.
func (b *Background) Capabilities() Capabilities {
	return Capabilities{Name: NameBackground, Detached: false, PersistsResult: b.results != nil}
}

// Start schedules job and returns immediately. ErrCapacity is returned when
// the concurrency limit is reached.
func (b *Background) Start(ctx context.Context, job Job) (Handle, error) {
	if b.stopCtx.Err() != nil {
		return Handle{}, errors.New("background strategy is shut down")
	}
	if !b.sem.TryAcquire(1) {
		return Handle{}, ErrCapacity
	}

	// Detach from the request's cancellation but keep its values.
	parent := context.WithoutCancel(ctx)
	b.wg.Go(func() {
		defer b.sem.Release(1)
		b.run(parent, job)
	})

	return Handle{RequestID: job.RequestID, Strategy: NameBackground, PID: os.Getpid()}, nil
}

func (b *Background) run(parent context.Context, job Job) {
	logger := b.logger.With("request_id", job.RequestID, "action", job.Action)
	caller := job.Caller
	if caller == nil {
		caller = progress.Nop{ID: job.RequestID, Logger: b.logger}
	}
	defer progress.Finish(caller)

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if job.Timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, job.Timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	defer cancel()
	stop := context.AfterFunc(b.stopCtx, cancel)
	defer stop()

	defer func() {
		if p := recover(); p != nil {
			logger.Error("background job panicked", "panic", fmt.Sprint(p))
			reason := fmt.Sprintf("internal error: %v", p)
			b.record(ctx, job.RequestID, model.ErrorResult(errors.New(reason)))
			b.notifyError(ctx, caller, job, reason, logger)
		}
	}()

	logger.Info("background job started")
	reporter := progress.NewReporter(job.RequestID, job.Label, caller, b.logger)
	result, err := b.engine.Run(ctx, job.Task, reporter.Step)
	if err != nil {
		reason := err.Error()
		terminal := model.ErrorResult(err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			reason = model.CancelledMessage
			terminal = model.CancelledMessage
		}
		logger.Warn("background job failed", "error", err, "steps", reporter.Count())
		b.record(ctx, job.RequestID, terminal)
		b.notifyError(ctx, caller, job, reason, logger)
		return
	}

	logger.Info("background job completed", "steps", reporter.Count())
	b.record(ctx, job.RequestID, result)
	text := result
	if job.SuccessText != nil {
		text = job.SuccessText(result)
	}
	if err := caller.Info(context.WithoutCancel(ctx), text); err != nil {
		logger.Warn("notify caller of completion", "error", err)
	}
}

func (b *Background) record(ctx context.Context, requestID, result string) {
	if b.results != nil {
		b.results.Put(context.WithoutCancel(ctx), requestID, result)
	}
}

func (b *Background) notifyError(ctx context.Context, caller progress.Notifier, job Job, reason string, logger *slog.Logger) {
	text := reason
	if job.FailureText != nil {
		text = job.FailureText(reason)
	}
	if err := caller.Error(context.WithoutCancel(ctx), text); err != nil {
		logger.Warn("notify caller of failure", "error", err)
	}
}

// Wait blocks until every running job has finished.
func (b *Background) Wait() {
	b.wg.Wait()
}

// Shutdown cancels running jobs and waits for them to report, or until ctx
// is done.
func (b *Background) Shutdown(ctx context.Context) error {
	b.stop()
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
