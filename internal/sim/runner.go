package sim

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"pacenet/internal/cell"
	"pacenet/internal/classify"
	"pacenet/internal/engine"
	"pacenet/internal/model"
	"pacenet/internal/network"
)

type Config struct {
	Topology   network.Topology
	Thresholds classify.Thresholds
	Engine     engine.Config
	// Seed plus the vector index seeds the network of each vector, so a
	// vector gets the same network whichever worker evaluates it.
	Seed   int64
	Logger *zap.Logger
}

// Outcome is everything one simulation produced.
type Outcome struct {
	Vector   model.ParameterVector `json:"vector"`
	Verdict  model.Verdict         `json:"verdict"`
	Result   classify.Result       `json:"result"`
	Engine   engine.Config         `json:"engine"`
	Duration time.Duration         `json:"duration"`
	Spikes   []cell.SpikeRecord    `json:"spikes"`
}

// Runner evaluates one parameter vector at a time. A Runner owns its engine
// configuration and is not safe for concurrent use; give every worker its
// own.
type Runner struct {
	cfg        Config
	engine     engine.Engine
	classifier *classify.Classifier
	log        *zap.Logger
}

func NewRunner(cfg Config, eng engine.Engine) (*Runner, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if err := cfg.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if cfg.Thresholds.StopTime != cfg.Engine.StopTime {
		return nil, fmt.Errorf("classifier stop time %g does not match engine stop time %g", cfg.Thresholds.StopTime, cfg.Engine.StopTime)
	}
	if err := cfg.Topology.Validate(); err != nil {
		return nil, err
	}
	classifier, err := classify.New(cfg.Thresholds)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		engine:     eng,
		classifier: classifier,
		log:        log,
	}, nil
}

// Run assembles a fresh network for vec, simulates it and classifies the
// somatic spike trains. Classification outcomes are never errors; only
// assembly or engine failures are.
func (r *Runner) Run(ctx context.Context, vec model.ParameterVector) (Outcome, error) {
	start := time.Now()
	engineCfg := r.cfg.Engine
	bio := network.DefaultBiophysics(vec.EK, vec.PacemakerGK, vec.RelayGK)

	assembler, err := network.NewAssembler(r.cfg.Topology, rand.New(rand.NewSource(r.cfg.Seed+int64(vec.Index))))
	if err != nil {
		return Outcome{}, fmt.Errorf("vector %d: assemble: %w", vec.Index, err)
	}
	net, err := assembler.Build(bio)
	if err != nil {
		return Outcome{}, fmt.Errorf("vector %d: assemble: %w", vec.Index, err)
	}
	if err := r.engine.Run(ctx, engineCfg, net); err != nil {
		return Outcome{}, fmt.Errorf("vector %d: %s engine: %w", vec.Index, r.engine.Name(), err)
	}

	spikes := make([]cell.SpikeRecord, len(net.Cells))
	soma := make([][]float64, len(net.Cells))
	for i, c := range net.Cells {
		spikes[i] = c.Spikes()
		soma[i] = spikes[i].Soma
	}
	res, err := r.classifier.Classify(soma, net.Topology.Pacemakers)
	if err != nil {
		return Outcome{}, fmt.Errorf("vector %d: classify: %w", vec.Index, err)
	}

	out := Outcome{
		Vector:   vec,
		Verdict:  model.Verdict{Index: vec.Index, Frequency: res.Frequency},
		Result:   res,
		Engine:   engineCfg,
		Duration: time.Since(start),
		Spikes:   spikes,
	}
	r.log.Debug("simulation finished",
		zap.Int("index", vec.Index),
		zap.Float64("ek", vec.EK),
		zap.Float64("pacemaker_gk", vec.PacemakerGK),
		zap.Float64("relay_gk", vec.RelayGK),
		zap.Float64("frequency", res.Frequency),
		zap.Bool("continue_firing", res.ContinueFiring),
		zap.Bool("fire_synchronously", res.FireSynchronously),
		zap.Bool("has_fired_enough", res.HasFiredEnough),
		zap.Duration("elapsed", out.Duration),
	)
	return out, nil
}
