package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"

	"github.com/seantiz/errand/internal/model"
)

const (
	defaultWriteRetries  = 3
	defaultRetryInterval = 50 * time.Millisecond
)

// ResultStore is the process-facing view of job records: a durable backend
// shared between processes plus an optional in-memory mirror.
//
// Writes never fail from the caller's point of view. A durable write that
// still fails after retries is logged and counted; the mirror (when present)
// always receives the record.
type ResultStore struct {
	durable Durable
	mirror  *Mirror
	clock   clockwork.Clock
	logger  *slog.Logger

	retries  uint64
	interval time.Duration
}

// Option configures a ResultStore.
type Option func(*ResultStore)

// WithMirror attaches an in-memory mirror.
func WithMirror(m *Mirror) Option {
	return func(s *ResultStore) { s.mirror = m }
}

// WithClock overrides the clock used to timestamp records.
func WithClock(c clockwork.Clock) Option {
	return func(s *ResultStore) { s.clock = c }
}

// WithWriteRetries sets how often a failed durable write is retried and the
// initial backoff between attempts.
func WithWriteRetries(retries uint64, interval time.Duration) Option {
	return func(s *ResultStore) {
		s.retries = retries
		s.interval = interval
	}
}

// NewResultStore creates a ResultStore. durable may be nil for a mirror-only
// store, in which case results are not visible to other processes.
func NewResultStore(durable Durable, logger *slog.Logger, opts ...Option) *ResultStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ResultStore{
		durable:  durable,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		retries:  defaultWriteRetries,
		interval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mirror returns the attached mirror, or nil.
func (s *ResultStore) Mirror() *Mirror {
	return s.mirror
}

// Put records result as the outcome of requestID. The status is derived from
// the result text.
func (s *ResultStore) Put(ctx context.Context, requestID, result string) model.JobRecord {
	return s.write(ctx, model.JobRecord{
		RequestID: requestID,
		Result:    result,
		Timestamp: s.clock.Now().UTC(),
		Status:    model.DeriveStatus(result),
	})
}

// PutPlaceholder records text as an in-progress record for requestID.
func (s *ResultStore) PutPlaceholder(ctx context.Context, requestID, text string) model.JobRecord {
	return s.write(ctx, model.JobRecord{
		RequestID: requestID,
		Result:    text,
		Timestamp: s.clock.Now().UTC(),
		Status:    model.StatusRunning,
	})
}

func (s *ResultStore) write(ctx context.Context, rec model.JobRecord) model.JobRecord {
	if s.mirror != nil {
		s.mirror.Set(rec)
	}
	if s.durable == nil {
		return rec
	}

	attempts := 0
	op := func() error {
		attempts++
		err := s.durable.Write(ctx, &rec)
		if errors.Is(err, ErrInvalidID) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.interval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, s.retries), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		storeWriteFailuresTotal.Inc()
		s.logger.Error("persist job record",
			"request_id", rec.RequestID,
			"status", rec.Status,
			"attempts", attempts,
			"error", err,
		)
		return rec
	}
	storeWritesTotal.WithLabelValues(rec.Status).Inc()
	if attempts > 1 {
		s.logger.Warn("persisted job record after retry",
			"request_id", rec.RequestID,
			"attempts", attempts,
		)
	}
	return rec
}

// Get returns the stored result text for requestID. The durable store is
// consulted first, then the mirror. ErrNotFound is returned when neither has
// a record.
func (s *ResultStore) Get(ctx context.Context, requestID string) (string, error) {
	rec, err := s.Record(ctx, requestID)
	if err != nil {
		return "", err
	}
	return rec.Result, nil
}

// Record returns the full record for requestID using the same lookup order
// as Get.
func (s *ResultStore) Record(ctx context.Context, requestID string) (*model.JobRecord, error) {
	if s.durable != nil {
		rec, err := s.durable.Read(ctx, requestID)
		switch {
		case err == nil:
			storeReadsTotal.WithLabelValues(tierDurable).Inc()
			return rec, nil
		case errors.Is(err, ErrNotFound):
		default:
			s.logger.Warn("read durable job record",
				"request_id", requestID,
				"error", err,
			)
		}
	}

	if s.mirror != nil {
		if rec, ok := s.mirror.Get(requestID); ok {
			storeReadsTotal.WithLabelValues(tierMirror).Inc()
			return &rec, nil
		}
	}

	storeReadsTotal.WithLabelValues(tierMiss).Inc()
	return nil, ErrNotFound
}

// Close closes the durable backend.
func (s *ResultStore) Close() error {
	if s.durable == nil {
		return nil
	}
	return s.durable.Close()
}
