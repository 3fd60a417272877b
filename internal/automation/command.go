package automation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// waitDelay bounds how long Run waits for the engine's output pipes to close
// after the process exits or is killed.
const waitDelay = 2 * time.Second

// Compile-time interface satisfaction check.
var _ Engine = (*CommandEngine)(nil)

// CommandEngine runs an external engine executable per task. The wrapped task
// is written to the engine's stdin; progress and the outcome are read from its
// stdout as JSON lines (see Message). Stderr is forwarded to the logger.
type CommandEngine struct {
	command string
	args    []string
	env     []string
	logger  *slog.Logger
}

// NewCommandEngine creates an engine that runs command with args. env entries
// (KEY=VALUE) are appended to the current environment.
func NewCommandEngine(command string, args, env []string, logger *slog.Logger) *CommandEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandEngine{
		command: command,
		args:    args,
		env:     env,
		logger:  logger,
	}
}

// Run executes task and returns the engine's result text.
func (e *CommandEngine) Run(ctx context.Context, task string, onStep StepFunc) (string, error) {
	if e.command == "" {
		return "", errors.New("engine command is empty")
	}

	cmd := exec.CommandContext(ctx, e.command, e.args...)
	cmd.Env = append(os.Environ(), e.env...)
	cmd.Stdin = strings.NewReader(WrapTask(task))
	cmd.WaitDelay = waitDelay

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start engine: %w", err)
	}

	logger := e.logger.With("engine_pid", cmd.Process.Pid)

	var wg sync.WaitGroup
	wg.Go(func() {
		logLines(logger, stderrPipe)
	})

	var (
		steps     int
		result    string
		gotResult bool
		engineErr string
	)

	scanner := bufio.NewScanner(stdoutPipe)
	scanner.Buffer(make([]byte, 64*1024), MaxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		msg, err := ParseMessage(line)
		if err != nil {
			logger.Debug("engine output", "line", string(line))
			continue
		}
		switch msg.Type {
		case MsgTypeStep:
			steps++
			notify(ctx, onStep, StepEvent{Number: steps, Detail: msg.Detail})
		case MsgTypeResult:
			result = msg.Result
			gotResult = true
		case MsgTypeError:
			engineErr = msg.Error
		}
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// Stop the engine; it may be blocked writing to the abandoned pipe.
		_ = cmd.Process.Kill()
	}

	wg.Wait()
	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if scanErr != nil {
		return "", fmt.Errorf("read engine output: %w", scanErr)
	}
	if engineErr != "" {
		return "", errors.New(engineErr)
	}
	if waitErr != nil {
		return "", fmt.Errorf("engine exited: %w", waitErr)
	}
	if !gotResult {
		return "", ErrNoResult
	}

	notify(ctx, onStep, StepEvent{Number: steps + 1, Done: true})
	return result, nil
}

// logLines forwards each line of r to logger until EOF.
func logLines(logger *slog.Logger, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxLineSize)
	for scanner.Scan() {
		logger.Info("engine stderr", "line", scanner.Text())
	}
}
