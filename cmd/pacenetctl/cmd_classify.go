package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pacenet/internal/classify"
	"pacenet/internal/config"
)

// spikeFile is the input of the classify command: somatic spike times per
// cell, pacemakers first.
type spikeFile struct {
	Pacemakers int         `json:"pacemakers"`
	Soma       [][]float64 `json:"soma"`
}

func newClassifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <spikes.json>",
		Short: "Classify recorded somatic spike trains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read spikes: %w", err)
			}
			var in spikeFile
			if err := json.Unmarshal(data, &in); err != nil {
				return fmt.Errorf("decode spikes %s: %w", args[0], err)
			}

			classifier, err := classify.New(cfg.Thresholds)
			if err != nil {
				return err
			}
			res, err := classifier.Classify(in.Soma, in.Pacemakers)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "frequency=%g oscillating=%t pacemaker_hz=%g relay_hz=%g has_fired_enough=%t continue_firing=%t fire_synchronously=%t\n",
				res.Frequency, res.Oscillating(), res.Pacemaker.Frequency, res.Relay.Frequency,
				res.HasFiredEnough, res.ContinueFiring, res.FireSynchronously)
			return nil
		},
	}
}
