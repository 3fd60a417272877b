package automation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Compile-time interface satisfaction check.
var _ Engine = (*Scripted)(nil)

// Scripted is a deterministic engine. It reports Steps one by one, pausing
// StepDelay before each, then returns Result or Err.
type Scripted struct {
	Steps     []string
	StepDelay time.Duration
	Result    string
	Err       error
	Clock     clockwork.Clock

	mu    sync.Mutex
	tasks []string
}

// Run plays the script for task.
func (s *Scripted) Run(ctx context.Context, task string, onStep StepFunc) (string, error) {
	s.mu.Lock()
	s.tasks = append(s.tasks, WrapTask(task))
	s.mu.Unlock()

	clock := s.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	for i, detail := range s.Steps {
		if s.StepDelay > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-clock.After(s.StepDelay):
			}
		} else if err := ctx.Err(); err != nil {
			return "", err
		}
		notify(ctx, onStep, StepEvent{Number: i + 1, Detail: detail})
	}

	if s.Err != nil {
		return "", s.Err
	}
	if s.Result == "" {
		return "", errors.New("scripted engine has no result")
	}
	notify(ctx, onStep, StepEvent{Number: len(s.Steps) + 1, Done: true})
	return s.Result, nil
}

// Tasks returns every wrapped task the engine has received.
func (s *Scripted) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tasks...)
}
