package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pacenet/internal/stats"
	"pacenet/internal/storage"
)

func newSummaryCmd(a *app) *cobra.Command {
	var index bool
	cmd := &cobra.Command{
		Use:   "summary <results-file|results-dir>",
		Short: "Summarize the verdicts of a results file, or list a results directory's run index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if index {
				entries, err := stats.ListRunIndex(args[0])
				if err != nil {
					return err
				}
				if a.jsonOut {
					return writeJSON(out, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(out, "no runs found")
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(out, "run_id=%s job=%s split=%d iteration=%d vectors=%d oscillating=%d mean_hz=%.3f created_at=%s\n",
						e.RunID, e.JobID, e.Split, e.Iteration, e.Summary.Vectors, e.Summary.Oscillating, e.Summary.MeanHz, e.CreatedAtUTC)
				}
				return nil
			}

			_, verdicts, err := storage.ReadResults(args[0])
			if err != nil {
				return err
			}
			s := stats.Summarize(verdicts)
			if a.jsonOut {
				return writeJSON(out, s)
			}
			fmt.Fprintf(out, "vectors=%d oscillating=%d silent=%d fraction=%.4f mean_hz=%.3f std_hz=%.3f min_hz=%.3f max_hz=%.3f\n",
				s.Vectors, s.Oscillating, s.Silent, s.Fraction, s.MeanHz, s.StdHz, s.MinHz, s.MaxHz)
			return nil
		},
	}
	cmd.Flags().BoolVar(&index, "index", false, "treat the argument as a results directory and list its run index")
	return cmd
}
