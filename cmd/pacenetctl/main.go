package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pacenet/internal/config"
	"pacenet/internal/storage"
)

var version = "0.1.0-dev"

// app carries the global flags and the injectable store factory.
type app struct {
	configPath string
	jsonOut    bool
	newStore   func(cfg *config.Config) (storage.Store, error)
}

func newApp() *app {
	return &app{
		newStore: func(cfg *config.Config) (storage.Store, error) {
			return storage.NewStore(cfg.Storage.Kind, cfg.Storage.SQLitePath)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(newApp()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pacenetctl",
		Short: "Pacemaker nucleus network sweeps",
		Long: `pacenetctl assembles pacemaker nucleus networks, simulates them for
batches of potassium parameters and classifies each run as oscillating or not.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSplitCmd(a),
		newRunCmd(a),
		newClassifyCmd(a),
		newLayoutCmd(a),
		newRunsCmd(a),
		newVerdictsCmd(a),
		newSummaryCmd(a),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pacenetctl version %s\n", version)
		},
	}
}

// openStore builds and initializes the configured store. The returned
// function closes it.
func (a *app) openStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	store, err := a.newStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() { _ = storage.CloseIfSupported(store) }
	if err := store.Init(ctx); err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	return store, closeStore, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
