// Package dispatch turns caller actions into running jobs and answers
// result lookups for them.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/seantiz/errand/internal/model"
	"github.com/seantiz/errand/internal/progress"
	"github.com/seantiz/errand/internal/store"
	"github.com/seantiz/errand/internal/strategy"
)

// DefaultTimeout bounds a job's engine run when none is configured.
const DefaultTimeout = 10 * time.Minute

var (
	// ErrInvalidRequest is returned when action parameters fail validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrDuplicateRequest is returned when a request ID has already been used.
	ErrDuplicateRequest = errors.New("request id already used")
)

// SearchRequest holds the parameters of the find-menu-options action.
type SearchRequest struct {
	Address     string `json:"address" validate:"required,max=500"`
	FoodCraving string `json:"food_craving" validate:"required,max=200"`
}

// OrderRequest holds the parameters of the order-food action.
type OrderRequest struct {
	ItemURL  string `json:"item_url" validate:"required,url,max=2048"`
	ItemName string `json:"item_name" validate:"required,max=300"`
}

// Ack is returned to the caller as soon as a job has started.
type Ack struct {
	RequestID   string `json:"request_id"`
	Action      string `json:"action"`
	Strategy    string `json:"strategy"`
	PID         int    `json:"pid,omitempty"`
	ResourceURI string `json:"resource_uri,omitempty"`
	Message     string `json:"message"`
}

// Dispatcher starts jobs on the strategy registered for their action and
// serves result lookups.
type Dispatcher struct {
	results  *store.ResultStore
	registry *strategy.Registry
	validate *validator.Validate
	logger   *slog.Logger
	timeout  time.Duration

	mu   sync.Mutex
	seen map[string]struct{}
}

// New creates a dispatcher. A non-positive timeout selects DefaultTimeout.
func New(results *store.ResultStore, registry *strategy.Registry, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		results:  results,
		registry: registry,
		validate: validator.New(),
		logger:   logger,
		timeout:  timeout,
		seen:     make(map[string]struct{}),
	}
}

// FindMenuOptions starts a menu search. The caller's request ID becomes the
// job's request ID; the result is retrievable under it once the job ends.
func (d *Dispatcher) FindMenuOptions(ctx context.Context, caller progress.Notifier, req SearchRequest) (Ack, error) {
	const action = model.ActionFindMenuOptions
	if err := d.check(action, req); err != nil {
		return Ack{}, err
	}
	task, err := render(searchTaskTemplate, req)
	if err != nil {
		return Ack{}, err
	}

	job := strategy.Job{
		Action: action,
		Task:   task,
		Label:  "Search",
		SuccessText: func(string) string {
			return fmt.Sprintf("Search for '%s' at '%s' completed", req.FoodCraving, req.Address)
		},
		FailureText: func(reason string) string {
			return fmt.Sprintf("Error searching for '%s': %s", req.FoodCraving, reason)
		},
	}
	h, caps, err := d.start(ctx, caller, job, searchPlaceholder(req))
	if err != nil {
		return Ack{}, err
	}

	if err := caller.Info(ctx, searchStartedInfo(req)); err != nil {
		d.logger.Warn("notify caller", "request_id", h.RequestID, "error", err)
	}
	release(caller, caps)

	return Ack{
		RequestID:   h.RequestID,
		Action:      action,
		Strategy:    h.Strategy,
		PID:         h.PID,
		ResourceURI: model.ResultURI(h.RequestID),
		Message:     searchAck(h.RequestID, h.PID, caps.Detached),
	}, nil
}

// OrderFood starts an order. Progress and the outcome are reported through
// caller.
func (d *Dispatcher) OrderFood(ctx context.Context, caller progress.Notifier, req OrderRequest) (Ack, error) {
	const action = model.ActionOrderFood
	if err := d.check(action, req); err != nil {
		return Ack{}, err
	}
	task, err := render(orderTaskTemplate, req)
	if err != nil {
		return Ack{}, err
	}

	job := strategy.Job{
		Action: action,
		Task:   task,
		Label:  "Order",
		SuccessText: func(string) string {
			return fmt.Sprintf("Order for '%s' has been placed successfully!", req.ItemName)
		},
		FailureText: func(reason string) string {
			return fmt.Sprintf("Error ordering '%s': %s", req.ItemName, reason)
		},
	}
	h, caps, err := d.start(ctx, caller, job, orderAck(req))
	if err != nil {
		return Ack{}, err
	}

	release(caller, caps)

	ack := Ack{
		RequestID: h.RequestID,
		Action:    action,
		Strategy:  h.Strategy,
		PID:       h.PID,
		Message:   orderAck(req),
	}
	if caps.PersistsResult {
		ack.ResourceURI = model.ResultURI(h.RequestID)
	}
	return ack, nil
}

// Result returns the current result text for requestID: the stored record's
// result, or NotFoundText when no record exists. It has no side effects.
func (d *Dispatcher) Result(ctx context.Context, requestID string) string {
	if !model.ValidRequestID(requestID) {
		return NotFoundText(requestID)
	}
	text, err := d.results.Get(ctx, requestID)
	if err != nil {
		return NotFoundText(requestID)
	}
	return text
}

// Record returns the full record for requestID, or store.ErrNotFound.
func (d *Dispatcher) Record(ctx context.Context, requestID string) (*model.JobRecord, error) {
	if !model.ValidRequestID(requestID) {
		return nil, store.ErrNotFound
	}
	return d.results.Record(ctx, requestID)
}

// Strategies lists the action to strategy assignments.
func (d *Dispatcher) Strategies() []strategy.Info {
	return d.registry.List()
}

func (d *Dispatcher) check(action string, req any) error {
	if err := d.validate.Struct(req); err != nil {
		dispatchFailuresTotal.WithLabelValues(action, "invalid").Inc()
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// start claims the caller's request ID, writes the placeholder when the
// strategy persists results, and starts the job. The placeholder is written
// before the job starts so that it can never overwrite a terminal record.
func (d *Dispatcher) start(ctx context.Context, caller progress.Notifier, job strategy.Job, placeholder string) (strategy.Handle, strategy.Capabilities, error) {
	id := caller.RequestID()
	if !model.ValidRequestID(id) {
		dispatchFailuresTotal.WithLabelValues(job.Action, "invalid").Inc()
		return strategy.Handle{}, strategy.Capabilities{}, fmt.Errorf("%w: request id %q", ErrInvalidRequest, id)
	}

	strat, err := d.registry.Resolve(job.Action)
	if err != nil {
		dispatchFailuresTotal.WithLabelValues(job.Action, "no_strategy").Inc()
		return strategy.Handle{}, strategy.Capabilities{}, err
	}
	caps := strat.Capabilities()

	if err := d.claim(ctx, id); err != nil {
		dispatchFailuresTotal.WithLabelValues(job.Action, "duplicate").Inc()
		return strategy.Handle{}, caps, err
	}

	job.RequestID = id
	job.Caller = caller
	job.Timeout = d.timeout

	logger := d.logger.With("request_id", id, "action", job.Action, "strategy", caps.Name)

	if caps.PersistsResult {
		d.results.PutPlaceholder(ctx, id, placeholder)
	}

	h, err := strat.Start(ctx, job)
	if err != nil {
		dispatchFailuresTotal.WithLabelValues(job.Action, "start").Inc()
		logger.Error("start job", "error", err)
		startErr := fmt.Errorf("failed to start %s: %w", job.Action, err)
		if caps.PersistsResult {
			d.results.Put(context.WithoutCancel(ctx), id, model.ErrorResult(startErr))
		}
		progress.Finish(caller)
		return strategy.Handle{}, caps, startErr
	}

	jobsDispatchedTotal.WithLabelValues(job.Action, h.Strategy).Inc()
	logger.Info("job dispatched", "pid", h.PID)
	return h, caps, nil
}

// release ends the caller session of a detached job; nothing in this
// process reports on it after dispatch.
func release(caller progress.Notifier, caps strategy.Capabilities) {
	if caps.Detached {
		progress.Finish(caller)
	}
}

// claim reserves requestID for one job. IDs with an existing record are
// rejected as well, which covers IDs used before a restart.
func (d *Dispatcher) claim(ctx context.Context, requestID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[requestID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRequest, requestID)
	}
	if _, err := d.results.Record(ctx, requestID); err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicateRequest, requestID)
	}
	d.seen[requestID] = struct{}{}
	return nil
}
