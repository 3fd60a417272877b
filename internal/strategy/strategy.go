// Package strategy runs dispatched jobs either in a detached worker process
// or as a background task inside the serving process.
package strategy

import (
	"context"
	"errors"
	"time"

	"github.com/seantiz/errand/internal/progress"
)

var (
	// ErrNoStrategy is returned when no strategy is registered for an action.
	ErrNoStrategy = errors.New("no execution strategy registered")

	// ErrCapacity is returned when a strategy cannot accept more jobs.
	ErrCapacity = errors.New("execution capacity exhausted")
)

// Strategy names.
const (
	NameProcess    = "process"
	NameBackground = "background"
)

// Job is one unit of work handed to a strategy.
type Job struct {
	RequestID string
	Action    string
	Task      string
	// Label prefixes forwarded step messages.
	Label   string
	Caller  progress.Notifier
	Timeout time.Duration

	// SuccessText and FailureText format the caller notification sent when
	// a background job ends. They are unused by detached strategies.
	SuccessText func(result string) string
	FailureText func(reason string) string
}

// Handle identifies a started job.
type Handle struct {
	RequestID string `json:"request_id"`
	Strategy  string `json:"strategy"`
	PID       int    `json:"pid"`
}

// Capabilities describes how a strategy runs jobs.
type Capabilities struct {
	Name string `json:"name"`
	// Detached jobs outlive the request and the serving process.
	Detached bool `json:"detached"`
	// PersistsResult reports whether the job writes its outcome to the
	// result store.
	PersistsResult bool `json:"persists_result"`
}

// Strategy starts jobs. Start returns as soon as the job is running; it
// never waits for the job to finish.
type Strategy interface {
	Start(ctx context.Context, job Job) (Handle, error)
	Capabilities() Capabilities
}
