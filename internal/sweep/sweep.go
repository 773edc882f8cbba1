// Package sweep evaluates a batch of parameter vectors on a fixed pool of
// workers and collects index-addressed verdicts.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pacenet/internal/archive"
	"pacenet/internal/engine"
	"pacenet/internal/metrics"
	"pacenet/internal/model"
	"pacenet/internal/sim"
	"pacenet/internal/storage"
)

type Config struct {
	// Runner is copied into every worker.
	Runner  sim.Config
	Workers int
	// NewEngine builds the engine of one worker.
	NewEngine func() (engine.Engine, error)

	RunID string
	// ArtifactsDir receives one artifact per simulation when set.
	ArtifactsDir string
	// ArchiveDir receives an archive of ArtifactsDir every ArchiveEvery
	// completions and once more at the end of the batch.
	ArchiveDir   string
	ArchiveEvery int
	KeepSpikes   bool

	Logger   *zap.Logger
	Metrics  *metrics.Collector
	Archiver *archive.Archiver
}

// Summary reports the bookkeeping of one Run.
type Summary struct {
	Completed   int
	Oscillating int
	Archives    int
	Elapsed     time.Duration
}

type Controller struct {
	cfg       Config
	log       *zap.Logger
	summary   Summary
	lastIndex int
}

func New(cfg Config) (*Controller, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be >= 1")
	}
	if cfg.NewEngine == nil {
		cfg.NewEngine = func() (engine.Engine, error) { return engine.New("") }
	}
	if cfg.ArchiveEvery < 0 {
		return nil, fmt.Errorf("archive interval must be >= 0")
	}
	if cfg.ArchiveEvery > 0 && (cfg.ArtifactsDir == "" || cfg.ArchiveDir == "") {
		return nil, fmt.Errorf("archiving requires artifact and archive directories")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Archiver == nil {
		cfg.Archiver = archive.New(log)
	}
	return &Controller{cfg: cfg, log: log}, nil
}

// Summary returns the bookkeeping of the last Run.
func (c *Controller) Summary() Summary {
	return c.summary
}

type completion struct {
	pos     int
	outcome sim.Outcome
}

// Run simulates every vector and returns verdicts in input order. The first
// worker failure cancels the remaining simulations and is returned.
// Artifacts and archives are written from the calling goroutine only, so an
// archive never observes a half-written artifact.
func (c *Controller) Run(ctx context.Context, vectors []model.ParameterVector) ([]model.Verdict, error) {
	start := time.Now()
	c.summary = Summary{}
	verdicts := make([]model.Verdict, len(vectors))
	if len(vectors) == 0 {
		return verdicts, nil
	}

	workerCount := c.cfg.Workers
	if workerCount > len(vectors) {
		workerCount = len(vectors)
	}
	runners := make([]*sim.Runner, workerCount)
	for w := range runners {
		eng, err := c.cfg.NewEngine()
		if err != nil {
			return nil, fmt.Errorf("worker %d engine: %w", w, err)
		}
		runnerCfg := c.cfg.Runner
		runnerCfg.Logger = c.log.With(zap.Int("worker", w))
		r, err := sim.NewRunner(runnerCfg, eng)
		if err != nil {
			return nil, fmt.Errorf("worker %d: %w", w, err)
		}
		runners[w] = r
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	jobs := make(chan int)
	results := make(chan completion, workerCount)

	g.Go(func() error {
		defer close(jobs)
		for i := range vectors {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for _, r := range runners {
		g.Go(func() error {
			for pos := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				out, err := runSafely(gctx, r, vectors[pos])
				if err != nil {
					if c.cfg.Metrics != nil {
						c.cfg.Metrics.ObserveFailure()
					}
					return err
				}
				select {
				case results <- completion{pos: pos, outcome: out}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	var controllerErr error
	for res := range results {
		if controllerErr != nil {
			continue
		}
		verdicts[res.pos] = res.outcome.Verdict
		if err := c.complete(res.outcome); err != nil {
			controllerErr = err
			cancel()
		}
	}
	workerErr := g.Wait()
	c.summary.Elapsed = time.Since(start)
	if controllerErr != nil {
		return nil, controllerErr
	}
	if workerErr != nil {
		return nil, workerErr
	}

	if c.cfg.ArchiveEvery > 0 {
		if err := c.archive(c.lastIndex); err != nil {
			return nil, err
		}
	}
	c.log.Info("sweep finished",
		zap.String("run_id", c.cfg.RunID),
		zap.String("simulations", humanize.Comma(int64(c.summary.Completed))),
		zap.Int("oscillating", c.summary.Oscillating),
		zap.Int("archives", c.summary.Archives),
		zap.Duration("elapsed", c.summary.Elapsed),
	)
	return verdicts, nil
}

// complete runs the controller-side bookkeeping of one finished simulation.
func (c *Controller) complete(out sim.Outcome) error {
	c.summary.Completed++
	c.lastIndex = out.Vector.Index
	if out.Verdict.Oscillating() {
		c.summary.Oscillating++
	}
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.ObserveSimulation(out.Verdict.Frequency, out.Duration)
	}
	c.log.Info("simulation complete",
		zap.Int("index", out.Vector.Index),
		zap.Float64("frequency", out.Verdict.Frequency),
		zap.Duration("elapsed", out.Duration),
		zap.Int("completed", c.summary.Completed),
	)

	if c.cfg.ArtifactsDir != "" {
		artifact := storage.Artifact{
			RunID:      c.cfg.RunID,
			Vector:     out.Vector,
			Verdict:    out.Verdict,
			Result:     out.Result,
			DurationMS: out.Duration.Milliseconds(),
			WrittenAt:  time.Now().UTC(),
		}
		if c.cfg.KeepSpikes {
			artifact.Spikes = out.Spikes
		}
		if _, err := storage.WriteArtifact(c.cfg.ArtifactsDir, artifact); err != nil {
			return err
		}
	}
	if c.cfg.ArchiveEvery > 0 && c.summary.Completed%c.cfg.ArchiveEvery == 0 {
		return c.archive(out.Vector.Index)
	}
	return nil
}

func (c *Controller) archive(index int) error {
	summary, err := c.cfg.Archiver.Archive(c.cfg.ArchiveDir, c.cfg.ArtifactsDir, index)
	if err != nil {
		return fmt.Errorf("archive artifacts: %w", err)
	}
	if summary.Files == 0 {
		return nil
	}
	c.summary.Archives++
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.ObserveArchive(summary.Compressed)
	}
	return nil
}

func runSafely(ctx context.Context, r *sim.Runner, vec model.ParameterVector) (out sim.Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("vector %d: panic: %v", vec.Index, p)
		}
	}()
	return r.Run(ctx, vec)
}
