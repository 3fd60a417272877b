// Package automation runs browser-automation tasks through an external
// agent engine and reports their step-by-step progress.
package automation

import (
	"context"
	"errors"
)

// taskPreamble is prepended to every task handed to an engine.
const taskPreamble = "perform the following task\n"

// ErrNoResult is returned when an engine finishes without producing a result.
var ErrNoResult = errors.New("engine finished without a result")

// StepEvent describes one completed engine step. The final event of a
// successful run has Done set.
type StepEvent struct {
	Number int
	Detail string
	Done   bool
}

// StepFunc is invoked after each engine step. It must not block for long;
// the engine waits for it before continuing.
type StepFunc func(ctx context.Context, ev StepEvent)

// Engine executes a natural-language task and returns its final result text.
// Run returns ctx.Err() when the context is cancelled or times out.
type Engine interface {
	Run(ctx context.Context, task string, onStep StepFunc) (string, error)
}

// WrapTask formats task the way engines expect to receive it.
func WrapTask(task string) string {
	return taskPreamble + task
}

func notify(ctx context.Context, onStep StepFunc, ev StepEvent) {
	if onStep != nil {
		onStep(ctx, ev)
	}
}
