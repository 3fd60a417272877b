// Package worker runs one job to completion inside a detached worker process
// and records its terminal outcome in the result store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/seantiz/errand/internal/automation"
	"github.com/seantiz/errand/internal/model"
	"github.com/seantiz/errand/internal/progress"
	"github.com/seantiz/errand/internal/store"
)

// previewLen is the number of result characters logged on completion.
const previewLen = 200

// ErrLocked is returned when another worker already owns the request ID.
var ErrLocked = errors.New("request is already being processed")

// Config configures a Worker.
type Config struct {
	// LockDir holds one <request_id>.lock file per running job.
	LockDir string
	// Timeout bounds the engine run. Zero means no limit.
	Timeout time.Duration
}

// Worker executes a single job.
type Worker struct {
	results *store.ResultStore
	engine  automation.Engine
	logger  *slog.Logger
	lockDir string
	timeout time.Duration
}

// New creates a worker.
func New(cfg Config, results *store.ResultStore, engine automation.Engine, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		results: results,
		engine:  engine,
		logger:  logger,
		lockDir: cfg.LockDir,
		timeout: cfg.Timeout,
	}
}

// Run executes task for requestID and writes exactly one terminal record:
// the engine's result, an error-marked result, or the cancellation message.
//
// Job failures are recorded, not returned. Run returns an error only when the
// job could not be attempted at all.
func (w *Worker) Run(ctx context.Context, requestID, task string) error {
	if !model.ValidRequestID(requestID) {
		return fmt.Errorf("invalid request id %q", requestID)
	}

	if err := os.MkdirAll(w.lockDir, 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(filepath.Join(w.lockDir, requestID+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %q: %w", lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrLocked, requestID)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			w.logger.Warn("release lock", "path", lock.Path(), "error", err)
		}
	}()

	logger := w.logger.With("request_id", requestID, "pid", os.Getpid())
	logger.Info("worker started", "timeout", w.timeout.String())
	start := time.Now()

	result := w.execute(ctx, requestID, task, logger)

	// The run context may already be done; the terminal write must still land.
	rec := w.results.Put(context.WithoutCancel(ctx), requestID, result)
	logger.Info("worker finished",
		"status", rec.Status,
		"duration", time.Since(start).Round(time.Millisecond).String(),
		"preview", preview(result),
	)
	return nil
}

// execute runs the engine and converts its outcome to result text.
func (w *Worker) execute(ctx context.Context, requestID, task string, logger *slog.Logger) (result string) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("engine panicked", "panic", fmt.Sprint(p))
			result = model.ErrorResult(fmt.Errorf("%v", p))
		}
	}()

	runCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	reporter := progress.NewReporter(requestID, "", nil, logger)
	out, err := w.engine.Run(runCtx, task, reporter.Step)
	switch {
	case err == nil:
		return out
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		logger.Warn("engine run cancelled", "error", err, "steps", reporter.Count())
		return model.CancelledMessage
	default:
		logger.Error("engine run failed", "error", err, "steps", reporter.Count())
		return model.ErrorResult(err)
	}
}

// preview returns the first previewLen characters of s.
func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen]) + "..."
}
