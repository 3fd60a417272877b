// Package cli implements the errand command line: the API server, the
// detached worker process body and result lookup.
package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/seantiz/errand/internal/config"
)

// app carries state shared by every subcommand.
type app struct {
	envFiles []string
	version  string
	cfg      config.Config
}

// NewRootCmd builds the errand command tree.
func NewRootCmd(version string) *cobra.Command {
	a := &app{version: version}

	root := &cobra.Command{
		Use:           "errand",
		Short:         "Dispatch long-running food search and order jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.envFiles...)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	root.AddCommand(
		newServeCmd(a),
		newWorkerCmd(a),
		newResultCmd(a),
		newVersionCmd(a),
	)
	return root
}

// Execute runs the command tree with args and returns the process exit code.
func Execute(ctx context.Context, version string, args []string, stderr io.Writer) int {
	root := NewRootCmd(version)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		config.NewLogger(stderr, slog.LevelError).Error("errand failed", "error", err)
		return 1
	}
	return 0
}

func (a *app) logger(w io.Writer) *slog.Logger {
	return config.NewLogger(w, a.cfg.LogLevel())
}
