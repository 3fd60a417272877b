package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seantiz/errand/internal/store"
	"github.com/seantiz/errand/internal/strategy"
	"github.com/seantiz/errand/internal/worker"
)

type workerFlags struct {
	requestID string
	task      string
	timeout   string
}

func newWorkerCmd(a *app) *cobra.Command {
	var f workerFlags
	cmd := &cobra.Command{
		Use:    strategy.WorkerCommand,
		Short:  "Run one job to completion (launched by serve)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runWorker(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.requestID, "request-id", "", "request ID to record the result under")
	cmd.Flags().StringVar(&f.task, "task", "", "task text for the automation engine")
	cmd.Flags().StringVar(&f.timeout, "timeout", "", "engine run timeout (default ERRAND_RUN_TIMEOUT)")
	_ = cmd.MarkFlagRequired("request-id")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func (a *app) runWorker(cmd *cobra.Command, f workerFlags) error {
	cfg := a.cfg
	logger := a.logger(cmd.OutOrStdout())

	timeout := cfg.RunTimeout
	if f.timeout != "" {
		d, err := parseTimeout(f.timeout)
		if err != nil {
			return err
		}
		timeout = d
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	durable, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	results := store.NewResultStore(durable, logger)
	defer results.Close()

	w := worker.New(worker.Config{
		LockDir: filepath.Join(cfg.Store.Dir, "locks"),
		Timeout: timeout,
	}, results, newEngine(cfg.Engine, logger), logger)

	return w.Run(ctx, f.requestID, f.task)
}

func parseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse --timeout %q: %w", s, err)
	}
	return d, nil
}
