package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacenet/internal/cell"
	"pacenet/internal/classify"
	"pacenet/internal/engine"
	"pacenet/internal/model"
	"pacenet/internal/network"
)

// scriptedEngine assigns fixed spike trains: pacemakers fire at pacePeriod,
// relays at relayPeriod, both ending at the stop time.
type scriptedEngine struct {
	pacePeriod  float64
	relayPeriod float64
	err         error
	seen        []engine.Config
}

func (e *scriptedEngine) Name() string { return "scripted" }

func (e *scriptedEngine) Run(_ context.Context, cfg engine.Config, net *network.Network) error {
	e.seen = append(e.seen, cfg)
	if e.err != nil {
		return e.err
	}
	for _, c := range net.Cells {
		period := e.relayPeriod
		if c.Kind() == cell.KindPacemaker {
			period = e.pacePeriod
		}
		if period <= 0 {
			continue
		}
		var spikes []float64
		for t := cfg.StopTime - 1; t > 0; t -= period {
			spikes = append([]float64{t}, spikes...)
		}
		c.SetSpikes(cell.SpikeRecord{Soma: spikes, Axon: spikes})
	}
	return nil
}

func testConfig() Config {
	return Config{
		Topology:   network.DefaultTopology(),
		Thresholds: classify.DefaultThresholds(),
		Engine:     engine.DefaultConfig(),
		Seed:       1,
	}
}

func TestRunnerReportsRelayFrequency(t *testing.T) {
	eng := &scriptedEngine{pacePeriod: 25, relayPeriod: 20}
	r, err := NewRunner(testConfig(), eng)
	require.NoError(t, err)

	out, err := r.Run(context.Background(), model.ParameterVector{Index: 4, EK: -80, PacemakerGK: 0.2, RelayGK: 0.1})
	require.NoError(t, err)

	assert.Equal(t, 4, out.Verdict.Index)
	assert.InDelta(t, 50, out.Verdict.Frequency, 1e-9)
	assert.True(t, out.Verdict.Oscillating())
	assert.Len(t, out.Spikes, 107)
	require.Len(t, eng.seen, 1)
	assert.Equal(t, 27.0, eng.seen[0].Temperature)
}

func TestRunnerSilentNetworkIsNotAnError(t *testing.T) {
	r, err := NewRunner(testConfig(), &scriptedEngine{})
	require.NoError(t, err)

	out, err := r.Run(context.Background(), model.ParameterVector{Index: 1})
	require.NoError(t, err)
	assert.Equal(t, model.NoOscillation, out.Verdict.Frequency)
	assert.False(t, out.Verdict.Oscillating())
}

func TestRunnerSurfacesEngineFailure(t *testing.T) {
	boom := errors.New("solver diverged")
	r, err := NewRunner(testConfig(), &scriptedEngine{err: boom})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), model.ParameterVector{Index: 9})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "vector 9")
}

func TestNewRunnerValidation(t *testing.T) {
	_, err := NewRunner(testConfig(), nil)
	require.Error(t, err)

	cfg := testConfig()
	cfg.Thresholds.StopTime = 200
	_, err = NewRunner(cfg, &scriptedEngine{})
	require.Error(t, err)

	cfg = testConfig()
	cfg.Topology.Relays = 0
	_, err = NewRunner(cfg, &scriptedEngine{})
	require.Error(t, err)
}

func TestRunnerWithReferenceEngine(t *testing.T) {
	cfg := testConfig()
	r, err := NewRunner(cfg, engine.NewLIF(engine.DefaultLIFParams()))
	require.NoError(t, err)

	out, err := r.Run(context.Background(), model.ParameterVector{Index: 0, EK: -80, PacemakerGK: 5, RelayGK: 5})
	require.NoError(t, err)
	assert.Equal(t, model.NoOscillation, out.Verdict.Frequency)
	assert.False(t, out.Result.HasFiredEnough)
}
