// Package progress carries step and outcome notifications from running jobs
// back to the caller that started them.
package progress

import (
	"context"
	"log/slog"
	"time"
)

// Notification kinds.
const (
	KindInfo     = "info"
	KindError    = "error"
	KindProgress = "progress"
)

// Notification is one caller-facing event.
type Notification struct {
	Kind     string    `json:"kind"`
	Message  string    `json:"message,omitempty"`
	Progress int       `json:"progress,omitempty"`
	Time     time.Time `json:"time"`
}

// Notifier is the caller-facing context of one invocation. Implementations
// must not block; a returned error means the notification was not delivered
// and never affects the job.
type Notifier interface {
	RequestID() string
	Info(ctx context.Context, text string) error
	Error(ctx context.Context, text string) error
	ReportProgress(ctx context.Context, count int) error
}

// Finisher is implemented by notifiers that hold resources until the job
// they report on has ended.
type Finisher interface {
	Finish()
}

// Finish calls n.Finish when n implements Finisher.
func Finish(n Notifier) {
	if f, ok := n.(Finisher); ok {
		f.Finish()
	}
}

// Compile-time interface satisfaction check.
var _ Notifier = Nop{}

// Nop is a Notifier with no live caller behind it. Notifications are logged
// at debug level and otherwise discarded.
type Nop struct {
	ID     string
	Logger *slog.Logger
}

// RequestID returns the invocation ID.
func (n Nop) RequestID() string { return n.ID }

// Info logs text.
func (n Nop) Info(_ context.Context, text string) error {
	n.log(KindInfo, "message", text)
	return nil
}

// Error logs text.
func (n Nop) Error(_ context.Context, text string) error {
	n.log(KindError, "message", text)
	return nil
}

// ReportProgress logs count.
func (n Nop) ReportProgress(_ context.Context, count int) error {
	n.log(KindProgress, "progress", count)
	return nil
}

func (n Nop) log(kind string, args ...any) {
	if n.Logger == nil {
		return
	}
	n.Logger.Debug("notification dropped",
		append([]any{"request_id", n.ID, "kind", kind}, args...)...,
	)
}
