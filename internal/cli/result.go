package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seantiz/errand/internal/dispatch"
	"github.com/seantiz/errand/internal/model"
	"github.com/seantiz/errand/internal/store"
)

func newResultCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "result <request_id>",
		Short: "Print the stored result of a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printResult(cmd, args[0], asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full record as JSON")
	return cmd
}

func (a *app) printResult(cmd *cobra.Command, requestID string, asJSON bool) error {
	logger := a.logger(cmd.ErrOrStderr())
	out := cmd.OutOrStdout()

	durable, err := store.Open(cmd.Context(), a.cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	results := store.NewResultStore(durable, logger)
	defer results.Close()

	var rec *model.JobRecord
	if model.ValidRequestID(requestID) {
		rec, err = results.Record(cmd.Context(), requestID)
	} else {
		err = store.ErrNotFound
	}
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintln(out, dispatch.NotFoundText(requestID))
		return nil
	}
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	fmt.Fprintln(out, rec.Result)
	return nil
}
