package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"pacenet/internal/config"
	"pacenet/internal/filetree"
	"pacenet/internal/grid"
)

func newSplitCmd(a *app) *cobra.Command {
	var (
		ek, paceGK, relayGK string
		splits              int
		iteration           int
		random              int
		seed                int64
		format              string
	)
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Generate sweep vectors and write them as split batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "json" && format != "csv" {
				return fmt.Errorf("unsupported format: %s", format)
			}
			var space grid.Space
			var err error
			if space.EK, err = grid.ParseAxis(ek); err != nil {
				return fmt.Errorf("ek: %w", err)
			}
			if space.PacemakerGK, err = grid.ParseAxis(paceGK); err != nil {
				return fmt.Errorf("pacemaker-gk: %w", err)
			}
			if space.RelayGK, err = grid.ParseAxis(relayGK); err != nil {
				return fmt.Errorf("relay-gk: %w", err)
			}

			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			tree, err := filetree.New(cfg.FileTree.Roots...)
			if err != nil {
				return err
			}

			vectors := space.Vectors()
			if random > 0 {
				vectors = space.Random(rand.New(rand.NewSource(seed)), random)
			}
			batches, err := grid.Split(vectors, splits)
			if err != nil {
				return err
			}
			paths, err := grid.WriteSplits(tree, iteration, batches, "."+format)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), paths)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "vectors=%d splits=%d iteration=%d\n", len(vectors), len(paths), iteration)
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&ek, "ek", "-100:-60:9", "EK axis as min:max:steps or a fixed value (mV)")
	cmd.Flags().StringVar(&paceGK, "pacemaker-gk", "0:1:11", "pacemaker somatic K conductance axis")
	cmd.Flags().StringVar(&relayGK, "relay-gk", "0:1:11", "relay somatic K conductance axis")
	cmd.Flags().IntVar(&splits, "splits", 1, "number of split batches")
	cmd.Flags().IntVar(&iteration, "iteration", 0, "iteration directory to write into")
	cmd.Flags().IntVar(&random, "random", 0, "draw this many uniform samples instead of the full grid")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed for --random")
	cmd.Flags().StringVar(&format, "format", "json", "batch format: json|csv")
	return cmd
}
