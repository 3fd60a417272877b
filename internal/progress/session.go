package progress

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jonboulle/clockwork"
)

// ErrSessionClosed is returned when notifying through a finished session.
var ErrSessionClosed = errors.New("caller session closed")

// Compile-time interface satisfaction checks.
var (
	_ Notifier = (*Session)(nil)
	_ Finisher = (*Session)(nil)
)

// Session is the caller-facing context of one API invocation. Notifications
// are published on the broker topic named by the request ID, where the
// caller can follow them.
type Session struct {
	id     string
	broker *Broker
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewSession creates a session publishing to broker under requestID and
// opens its topic.
func NewSession(requestID string, broker *Broker, clock clockwork.Clock, logger *slog.Logger) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	broker.Open(requestID)
	return &Session{id: requestID, broker: broker, clock: clock, logger: logger}
}

// RequestID returns the invocation ID.
func (s *Session) RequestID() string { return s.id }

// Info publishes an informational message.
func (s *Session) Info(_ context.Context, text string) error {
	return s.publish(Notification{Kind: KindInfo, Message: text})
}

// Error publishes an error message.
func (s *Session) Error(_ context.Context, text string) error {
	return s.publish(Notification{Kind: KindError, Message: text})
}

// ReportProgress publishes a progress count.
func (s *Session) ReportProgress(_ context.Context, count int) error {
	return s.publish(Notification{Kind: KindProgress, Progress: count})
}

// Finish closes the session's topic. Later notifications return
// ErrSessionClosed.
func (s *Session) Finish() {
	s.broker.Close(s.id)
}

func (s *Session) publish(n Notification) error {
	n.Time = s.clock.Now().UTC()
	if !s.broker.Publish(s.id, n) {
		return ErrSessionClosed
	}
	s.logger.Debug("notification published",
		"request_id", s.id,
		"kind", n.Kind,
	)
	return nil
}
