package model

import (
	"strings"
	"time"
)

// Job record status constants.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Result text markers. A result beginning with either marker is an error.
const (
	ErrorMarker     = "Error"
	CancelledMarker = "Search was cancelled"
)

// CancelledMessage is the terminal result written when an engine run times out.
const CancelledMessage = "Search was cancelled due to timeout. Please try again with a simpler search or address."

// Action names.
const (
	ActionFindMenuOptions = "find_menu_options"
	ActionOrderFood       = "order_food"
)

// JobRecord is the persisted outcome of one asynchronous job. There is exactly
// one record per request ID; every write replaces the previous one.
type JobRecord struct {
	RequestID string    `json:"request_id"`
	Result    string    `json:"result"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

// Terminal reports whether the record holds a final outcome.
func (r *JobRecord) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusError
}

// DeriveStatus classifies a terminal result text. Text that starts with
// ErrorMarker or CancelledMarker is an error, anything else is completed.
//
// A legitimate result that happens to start with "Error" is classified as an
// error as well; callers that need an explicit status should not rely on text.
func DeriveStatus(result string) string {
	if strings.HasPrefix(result, ErrorMarker) || strings.HasPrefix(result, CancelledMarker) {
		return StatusError
	}
	return StatusCompleted
}

// ErrorResult formats err as an error-marked result text.
func ErrorResult(err error) string {
	return ErrorMarker + ": " + err.Error()
}
