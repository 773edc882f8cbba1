package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacenet/internal/model"
)

// train returns two spikes whose last interval yields freq Hz, ending at last.
func train(freq, last float64) []float64 {
	return []float64{last - 1000/freq, last}
}

func population(pacemakers, relays int) [][]float64 {
	return make([][]float64, pacemakers+relays)
}

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New(DefaultThresholds())
	require.NoError(t, err)
	return c
}

func TestClassifySilentPopulation(t *testing.T) {
	res, err := newClassifier(t).Classify(population(87, 20), 87)
	require.NoError(t, err)

	assert.Equal(t, model.NoOscillation, res.Frequency)
	assert.False(t, res.HasFiredEnough)
	assert.False(t, res.ContinueFiring)
	assert.Less(t, res.Frequency, 0.0)
	assert.NotEqual(t, 0.0, res.Frequency)
}

func TestClassifySynchronousOscillation(t *testing.T) {
	soma := population(87, 20)
	soma[10] = train(5.0, 95)
	soma[95] = train(5.2, 96)

	res, err := newClassifier(t).Classify(soma, 87)
	require.NoError(t, err)

	assert.True(t, res.ContinueFiring)
	assert.True(t, res.FireSynchronously)
	assert.True(t, res.HasFiredEnough)
	assert.InDelta(t, 5.2, res.Frequency, 1e-9)
	assert.Equal(t, 10, res.Pacemaker.ID)
	assert.Equal(t, 95, res.Relay.ID)
}

func TestClassifyAsynchronousFrequencies(t *testing.T) {
	soma := population(87, 20)
	soma[0] = train(5.0, 99)
	soma[100] = train(20.0, 99)

	res, err := newClassifier(t).Classify(soma, 87)
	require.NoError(t, err)

	assert.True(t, res.ContinueFiring)
	assert.False(t, res.FireSynchronously)
	assert.Equal(t, model.NoOscillation, res.Frequency)
}

func TestClassifySingleSpikePopulation(t *testing.T) {
	soma := population(87, 20)
	for id := 0; id < 87; id++ {
		soma[id] = train(40, 90)
	}
	for id := 87; id < 107; id++ {
		soma[id] = []float64{98}
	}

	res, err := newClassifier(t).Classify(soma, 87)
	require.NoError(t, err)

	assert.Zero(t, res.Relay.Frequency)
	assert.True(t, res.HasFiredEnough)
	assert.False(t, res.ContinueFiring)
	assert.Equal(t, model.NoOscillation, res.Frequency)
}

func TestClassifyFiringStoppedEarly(t *testing.T) {
	soma := population(87, 20)
	soma[3] = []float64{10, 20, 30}
	soma[90] = []float64{11, 21, 31}

	res, err := newClassifier(t).Classify(soma, 87)
	require.NoError(t, err)

	assert.True(t, res.FireSynchronously)
	assert.False(t, res.ContinueFiring)
	assert.Equal(t, model.NoOscillation, res.Frequency)
}

func TestClassifyPicksFastestCellLowestIDOnTie(t *testing.T) {
	soma := population(4, 3)
	soma[1] = []float64{60, 80, 90}
	soma[2] = []float64{70, 90}
	soma[3] = []float64{85, 95}
	soma[5] = []float64{75, 85, 95}
	soma[6] = []float64{90, 100}

	res, err := newClassifier(t).Classify(soma, 4)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Pacemaker.ID)
	assert.InDelta(t, 100, res.Pacemaker.Frequency, 1e-9)
	assert.Equal(t, 5, res.Relay.ID)
	assert.InDelta(t, 100, res.Relay.Frequency, 1e-9)
	assert.InDelta(t, 100, res.Frequency, 1e-9)
}

func TestClassifyIsIdempotent(t *testing.T) {
	soma := population(87, 20)
	soma[2] = []float64{20, 45, 70, 95}
	soma[88] = []float64{22, 47, 72, 97}

	c := newClassifier(t)
	first, err := c.Classify(soma, 87)
	require.NoError(t, err)
	second, err := c.Classify(soma, 87)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.InDelta(t, 40, first.Frequency, 1e-9)
}

func TestClassifyRespectsConfiguredThresholds(t *testing.T) {
	soma := population(2, 2)
	soma[0] = train(10, 99)
	soma[2] = train(14, 99)

	strict, err := New(Thresholds{StopTime: 100, WindowDivisor: 3, WindowOffset: 7, RelTolerance: 0.1})
	require.NoError(t, err)
	res, err := strict.Classify(soma, 2)
	require.NoError(t, err)
	assert.False(t, res.FireSynchronously)

	res, err = newClassifier(t).Classify(soma, 2)
	require.NoError(t, err)
	assert.True(t, res.Oscillating())
}

func TestClassifyRejectsBadPopulationSplit(t *testing.T) {
	c := newClassifier(t)
	_, err := c.Classify(population(3, 0), 3)
	require.Error(t, err)
	_, err = c.Classify(population(0, 3), 0)
	require.Error(t, err)
}

func TestNewRejectsBadThresholds(t *testing.T) {
	_, err := New(Thresholds{StopTime: 0, WindowDivisor: 3})
	require.Error(t, err)
	_, err = New(Thresholds{StopTime: 100, WindowDivisor: 0})
	require.Error(t, err)
	_, err = New(Thresholds{StopTime: 100, WindowDivisor: 3, RelTolerance: -1})
	require.Error(t, err)
}

func TestLastIntervalRate(t *testing.T) {
	tests := []struct {
		name   string
		spikes []float64
		want   float64
		last   float64
	}{
		{name: "empty", spikes: nil, want: 0, last: 0},
		{name: "single", spikes: []float64{42}, want: 0, last: 42},
		{name: "pair", spikes: []float64{10, 35}, want: 40, last: 35},
		{name: "uses-last-interval", spikes: []float64{0, 50, 60}, want: 100, last: 60},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rate := LastIntervalRate(1, tc.spikes)
			assert.InDelta(t, tc.want, rate.Frequency, 1e-9)
			assert.Equal(t, tc.last, rate.LastSpike)
			assert.Equal(t, len(tc.spikes), rate.Spikes)
		})
	}
}

func TestClose(t *testing.T) {
	assert.True(t, Close(5.0, 5.2, 0.5))
	assert.False(t, Close(5.0, 20.0, 0.5))
	assert.True(t, Close(0, 0, 0.5))
	assert.False(t, Close(0, 1, 0.5))
}
