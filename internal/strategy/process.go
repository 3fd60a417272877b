package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// WorkerCommand is the subcommand a detached worker process runs.
const WorkerCommand = "worker"

// Compile-time interface satisfaction check.
var _ Strategy = (*Process)(nil)

// ProcessConfig configures the detached worker process strategy.
type ProcessConfig struct {
	// Bin is the executable to launch. Empty means the running executable.
	Bin string
	// Args are inserted before the worker subcommand.
	Args []string
	// LogDir receives one <request_id>.log per job holding the worker's
	// stdout and stderr.
	LogDir string
	// Env entries (KEY=VALUE) are appended to the inherited environment.
	Env []string
}

// Process runs each job in a separate worker process:
//
//	<bin> [args...] worker --request-id <id> --timeout <d> --task <text>
//
// The worker is started in its own session and keeps running when the
// serving process exits. It owns the job's terminal record.
type Process struct {
	cfg    ProcessConfig
	logger *slog.Logger
	reaper sync.WaitGroup
}

// NewProcess creates a process strategy.
func NewProcess(cfg ProcessConfig, logger *slog.Logger) *Process {
	if logger == nil {
		logger = slog.Default()
	}
	return &Process{cfg: cfg, logger: logger}
}

// Capabilities reports that process jobs are detached and persist results.
func (p *Process) Capabilities() Capabilities {
	return Capabilities{Name: NameProcess, Detached: true, PersistsResult: true}
}

// LogPath returns the worker log file for requestID.
func (p *Process) LogPath(requestID string) string {
	return filepath.Join(p.cfg.LogDir, requestID+".log")
}

// Start launches the worker and returns once the process exists.
func (p *Process) Start(_ context.Context, job Job) (Handle, error) {
	bin := p.cfg.Bin
	if bin == "" {
		exe, err := os.Executable()
		if err != nil {
			return Handle{}, fmt.Errorf("resolve executable: %w", err)
		}
		bin = exe
	}

	if err := os.MkdirAll(p.cfg.LogDir, 0o755); err != nil {
		return Handle{}, fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(p.LogPath(job.RequestID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Handle{}, fmt.Errorf("create worker log: %w", err)
	}
	// The child holds its own descriptor once started.
	defer logFile.Close()

	args := append([]string(nil), p.cfg.Args...)
	args = append(args, WorkerCommand,
		"--request-id", job.RequestID,
		"--timeout", job.Timeout.String(),
		"--task", job.Task,
	)

	// Not bound to ctx: the worker must outlive the request that started it.
	cmd := exec.Command(bin, args...)
	cmd.Stdin = nil
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(), p.cfg.Env...)
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return Handle{}, fmt.Errorf("start worker: %w", err)
	}

	pid := cmd.Process.Pid
	p.logger.Info("worker started",
		"request_id", job.RequestID,
		"action", job.Action,
		"pid", pid,
		"log", p.LogPath(job.RequestID),
	)

	p.reaper.Go(func() {
		p.reap(cmd, job.RequestID)
	})

	return Handle{RequestID: job.RequestID, Strategy: NameProcess, PID: pid}, nil
}

// reap waits for the worker so it does not linger as a zombie, and logs
// abnormal exits.
func (p *Process) reap(cmd *exec.Cmd, requestID string) {
	start := time.Now()
	err := cmd.Wait()
	logger := p.logger.With(
		"request_id", requestID,
		"pid", cmd.Process.Pid,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		logger.Info("worker exited")
	case errors.As(err, &exitErr):
		logger.Warn("worker exited abnormally",
			"exit_code", exitErr.ExitCode(),
			"log", p.LogPath(requestID),
		)
	default:
		logger.Error("wait for worker", "error", err)
	}
}

// Wait blocks until every worker started by p has exited.
func (p *Process) Wait() {
	p.reaper.Wait()
}
