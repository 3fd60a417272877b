package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/seantiz/errand/internal/automation"
)

// Reporter counts the steps of one job. Every step is logged with the
// running count; when a Notifier is attached the step is also forwarded to
// the caller as an info message and a progress count.
//
// Step never panics and never returns an error, so a reporting failure
// cannot abort the job.
type Reporter struct {
	requestID string
	label     string
	notifier  Notifier
	logger    *slog.Logger
	steps     atomic.Int64
}

// NewReporter creates a reporter for requestID. label prefixes forwarded
// messages ("<label> step N completed"). A nil notifier disables forwarding.
func NewReporter(requestID, label string, notifier Notifier, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		requestID: requestID,
		label:     label,
		notifier:  notifier,
		logger:    logger,
	}
}

// Step records one engine step. Its signature matches automation.StepFunc.
func (r *Reporter) Step(ctx context.Context, ev automation.StepEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("progress reporter panicked",
				"request_id", r.requestID,
				"panic", fmt.Sprint(p),
			)
		}
	}()

	n := int(r.steps.Add(1))
	r.logger.Info("step completed",
		"request_id", r.requestID,
		"step", n,
		"detail", ev.Detail,
		"done", ev.Done,
	)

	if r.notifier == nil {
		return
	}
	if err := r.notifier.Info(ctx, fmt.Sprintf("%s step %d completed", r.label, n)); err != nil {
		r.logger.Warn("forward step message", "request_id", r.requestID, "error", err)
	}
	if err := r.notifier.ReportProgress(ctx, n); err != nil {
		r.logger.Warn("forward progress", "request_id", r.requestID, "error", err)
	}
}

// Count returns the number of steps recorded so far.
func (r *Reporter) Count() int {
	return int(r.steps.Load())
}
