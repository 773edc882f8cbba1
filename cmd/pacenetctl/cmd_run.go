package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pacenet/internal/archive"
	"pacenet/internal/config"
	"pacenet/internal/engine"
	"pacenet/internal/filetree"
	"pacenet/internal/logging"
	"pacenet/internal/metrics"
	"pacenet/internal/model"
	"pacenet/internal/sim"
	"pacenet/internal/stats"
	"pacenet/internal/storage"
	"pacenet/internal/sweep"
)

type splitJob struct {
	split      int
	iteration  int
	jobID      string
	batchPath  string
	format     string
	keepSpikes bool
}

type runReport struct {
	Run         model.RunRecord        `json:"run"`
	ResultsPath string                 `json:"results_path"`
	Summary     stats.FrequencySummary `json:"summary"`
	Archives    int                    `json:"archives"`
	Elapsed     string                 `json:"elapsed"`
}

func newRunCmd(a *app) *cobra.Command {
	var (
		job     splitJob
		workers int
		seed    int64
	)
	cmd := &cobra.Command{
		Use:   "run <split> <iteration> <job-id>",
		Short: "Simulate every parameter vector of a split and write its results",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if job.split, err = strconv.Atoi(args[0]); err != nil || job.split < 0 {
				return fmt.Errorf("split must be a non-negative integer: %q", args[0])
			}
			if job.iteration, err = strconv.Atoi(args[1]); err != nil || job.iteration < 0 {
				return fmt.Errorf("iteration must be a non-negative integer: %q", args[1])
			}
			job.jobID = args[2]
			if job.format != "json" && job.format != "csv" {
				return fmt.Errorf("unsupported format: %s", job.format)
			}

			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Sweep.Workers = workers
			}
			if cmd.Flags().Changed("seed") {
				cfg.Sweep.Seed = seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			report, err := a.runSplit(cmd.Context(), cfg, log, job)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			r := report.Run
			fmt.Fprintf(cmd.OutOrStdout(), "run_id=%s split=%d iteration=%d job=%s vectors=%d oscillating=%d archives=%d elapsed=%s results=%s\n",
				r.ID, r.Split, r.Iteration, r.JobID, r.Vectors, r.Oscillating, report.Archives, report.Elapsed, report.ResultsPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&job.batchPath, "batch", "", "batch file (defaults to the split file of the file tree)")
	cmd.Flags().StringVar(&job.format, "format", "json", "batch and results format: json|csv")
	cmd.Flags().BoolVar(&job.keepSpikes, "keep-spikes", false, "store spike trains in per-run artifacts")
	cmd.Flags().IntVar(&workers, "workers", 0, "override sweep.workers")
	cmd.Flags().Int64Var(&seed, "seed", 0, "override sweep.seed")
	return cmd
}

func (a *app) runSplit(ctx context.Context, cfg *config.Config, log *zap.Logger, job splitJob) (runReport, error) {
	tree, err := filetree.New(cfg.FileTree.Roots...)
	if err != nil {
		return runReport{}, err
	}
	paths, err := filetree.Resolve(tree, job.iteration, job.split, true)
	if err != nil {
		return runReport{}, err
	}
	ext := "." + job.format
	batchPath := job.batchPath
	if batchPath == "" {
		batchPath = filetree.BatchFile(paths.Splits, job.split, ext)
	}
	vectors, err := storage.ReadBatch(batchPath)
	if err != nil {
		return runReport{}, fmt.Errorf("load batch: %w", err)
	}

	store, closeStore, err := a.openStore(ctx, cfg)
	if err != nil {
		return runReport{}, err
	}
	defer closeStore()

	run := storage.Stamp(model.RunRecord{
		ID:        uuid.NewString(),
		Split:     job.split,
		Iteration: job.iteration,
		JobID:     job.jobID,
		Status:    model.RunStatusRunning,
		Vectors:   len(vectors),
		StartedAt: time.Now().UTC(),
	})
	if err := store.SaveRun(ctx, run); err != nil {
		return runReport{}, fmt.Errorf("save run: %w", err)
	}
	log = log.With(zap.String("run_id", run.ID), zap.String("job", job.jobID), zap.Int("split", job.split))
	log.Info("batch loaded", zap.String("batch", batchPath), zap.Int("vectors", len(vectors)))

	collector := metrics.NewCollector("pacenet")
	ctrl, err := sweep.New(sweep.Config{
		Runner: sim.Config{
			Topology:   cfg.Topology,
			Thresholds: cfg.Thresholds,
			Engine:     cfg.Engine.Config,
			Seed:       cfg.Sweep.Seed,
		},
		Workers:      cfg.Sweep.Workers,
		NewEngine:    func() (engine.Engine, error) { return engine.New(cfg.Engine.Name) },
		RunID:        run.ID,
		ArtifactsDir: paths.Artifacts,
		ArchiveDir:   paths.Archives,
		ArchiveEvery: cfg.Sweep.ArchiveEvery,
		KeepSpikes:   job.keepSpikes,
		Logger:       log,
		Metrics:      collector,
		Archiver:     archive.New(log),
	})
	if err != nil {
		return runReport{}, err
	}

	resultsPath := filetree.ResultsFile(paths.Results, job.split, ext)
	verdicts, runErr := ctrl.Run(ctx, vectors)
	if runErr == nil {
		runErr = storage.WriteResults(resultsPath, vectors, verdicts)
	}
	if runErr == nil {
		runErr = store.SaveVerdicts(ctx, run.ID, verdicts)
	}
	summary := stats.Summarize(verdicts)
	if runErr == nil {
		runErr = stats.AppendRunIndex(paths.Results, stats.RunIndexEntry{
			RunID:        run.ID,
			JobID:        job.jobID,
			Split:        job.split,
			Iteration:    job.iteration,
			ResultsPath:  resultsPath,
			Summary:      summary,
			CreatedAtUTC: run.StartedAt.UTC().Format(stats.TimeLayout),
		})
	}

	run.FinishedAt = time.Now().UTC()
	status := string(model.RunStatusComplete)
	if runErr != nil {
		run.Status = model.RunStatusFailed
		run.Error = runErr.Error()
		status = string(model.RunStatusFailed)
	} else {
		run.Status = model.RunStatusComplete
		run.Oscillating = summary.Oscillating
	}
	collector.ObserveBatch(status)
	if err := store.SaveRun(context.WithoutCancel(ctx), run); err != nil && runErr == nil {
		runErr = fmt.Errorf("save run: %w", err)
	}
	if cfg.Metrics.Textfile != "" {
		if err := collector.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Warn("metrics textfile not written", zap.Error(err))
		}
	}
	if runErr != nil {
		log.Error("batch failed", zap.Error(runErr))
		return runReport{}, runErr
	}

	log.Info("results written",
		zap.String("results", resultsPath),
		zap.Int("oscillating", summary.Oscillating),
		zap.Float64("mean_hz", summary.MeanHz),
	)
	sweepSummary := ctrl.Summary()
	return runReport{
		Run:         run,
		ResultsPath: resultsPath,
		Summary:     summary,
		Archives:    sweepSummary.Archives,
		Elapsed:     sweepSummary.Elapsed.String(),
	}, nil
}
