package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pacenet/internal/config"
	"pacenet/internal/model"
)

func newRunsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded batch runs, newest first",
		Long: `List recorded batch runs, newest first.

Runs are read from the configured store. The memory store keeps nothing
between invocations; set storage.kind to sqlite (binary built with
-tags sqlite) to list runs recorded by earlier "run" commands.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return errors.New("limit must be > 0")
			}
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			store, closeStore, err := a.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			runs, err := store.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			newest := make([]model.RunRecord, 0, len(runs))
			for i := len(runs) - 1; i >= 0 && len(newest) < limit; i-- {
				newest = append(newest, runs[i])
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), newest)
			}
			if len(newest) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs found"+volatileStoreHint(cfg))
				return nil
			}
			for _, r := range newest {
				fmt.Fprintf(cmd.OutOrStdout(), "run_id=%s split=%d iteration=%d job=%s status=%s vectors=%d oscillating=%d started_at=%s\n",
					r.ID, r.Split, r.Iteration, r.JobID, r.Status, r.Vectors, r.Oscillating, r.StartedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list")
	return cmd
}

func newVerdictsCmd(a *app) *cobra.Command {
	var oscillatingOnly bool
	cmd := &cobra.Command{
		Use:   "verdicts <run-id>",
		Short: "Print the verdicts of a completed run",
		Long: `Print the verdicts of a completed run.

Verdicts are read from the configured store. The memory store keeps nothing
between invocations; use the sqlite store to read verdicts saved by an
earlier "run" command.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			store, closeStore, err := a.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			verdicts, ok, err := store.GetVerdicts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("run %s has no verdicts%s", args[0], volatileStoreHint(cfg))
			}
			if oscillatingOnly {
				kept := verdicts[:0]
				for _, v := range verdicts {
					if v.Oscillating() {
						kept = append(kept, v)
					}
				}
				verdicts = kept
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), verdicts)
			}
			for _, v := range verdicts {
				fmt.Fprintf(cmd.OutOrStdout(), "index=%d frequency=%g oscillating=%t\n", v.Index, v.Frequency, v.Oscillating())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&oscillatingOnly, "oscillating", false, "only print oscillating verdicts")
	return cmd
}

// volatileStoreHint explains an empty lookup against a store that does not
// outlive the process.
func volatileStoreHint(cfg *config.Config) string {
	if cfg.Storage.Kind != "memory" {
		return ""
	}
	return " (memory store does not persist between invocations; set storage.kind: sqlite)"
}
