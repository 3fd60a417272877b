package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seantiz/errand/internal/api"
	"github.com/seantiz/errand/internal/dispatch"
	"github.com/seantiz/errand/internal/model"
	"github.com/seantiz/errand/internal/progress"
	"github.com/seantiz/errand/internal/store"
	"github.com/seantiz/errand/internal/strategy"
)

const backgroundShutdownTimeout = 15 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd)
		},
	}
}

func (a *app) serve(cmd *cobra.Command) error {
	cfg := a.cfg
	logger := a.logger(cmd.OutOrStdout())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("errand: starting",
		"version", a.version,
		"listen_addr", cfg.ListenAddr,
		"store_driver", cfg.Store.Driver,
		"engine", cfg.Engine.Kind,
	)

	durable, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	results := store.NewResultStore(durable, logger, store.WithMirror(store.NewMirror()))
	defer results.Close()

	engine := newEngine(cfg.Engine, logger)

	process := strategy.NewProcess(strategy.ProcessConfig{
		Bin:    cfg.WorkerBin,
		LogDir: filepath.Join(cfg.Store.Dir, "logs"),
	}, logger)
	background := strategy.NewBackground(engine, int64(cfg.MaxBackgroundJobs), logger)

	registry := strategy.NewRegistry()
	registry.Register(model.ActionFindMenuOptions, process)
	registry.Register(model.ActionOrderFood, background)

	d := dispatch.New(results, registry, cfg.RunTimeout, logger)
	srv := api.NewServer(cfg.ListenAddr, d, progress.NewBroker(), logger)

	runErr := srv.Run(ctx)

	// Workers are detached and keep running; only in-process jobs are stopped.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundShutdownTimeout)
	defer cancel()
	if err := background.Shutdown(shutdownCtx); err != nil {
		logger.Warn("background jobs did not stop in time", "error", err)
	}

	return runErr
}
