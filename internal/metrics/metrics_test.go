package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSimulation(t *testing.T) {
	c := NewCollector("pacenet")

	c.ObserveSimulation(40, 2*time.Second)
	c.ObserveSimulation(-1e-15, time.Second)
	c.ObserveSimulation(0, time.Second)
	c.ObserveFailure()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Simulations.WithLabelValues(VerdictOscillating)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Simulations.WithLabelValues(VerdictSilent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Simulations.WithLabelValues(VerdictFailed)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.Frequency))
}

func TestObserveArchiveAndBatch(t *testing.T) {
	c := NewCollector("pacenet")
	c.ObserveArchive(1024)
	c.ObserveArchive(512)
	c.ObserveBatch("complete")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Archives))
	assert.Equal(t, 1536.0, testutil.ToFloat64(c.ArchiveBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Batches.WithLabelValues("complete")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("pacenet")
	b := NewCollector("pacenet")
	a.ObserveArchive(1)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Archives))
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector("pacenet")
	c.ObserveSimulation(25, 10*time.Millisecond)

	path := filepath.Join(t.TempDir(), "pacenet.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `pacenet_simulations_total{verdict="oscillating"} 1`)
	assert.Contains(t, string(data), "pacenet_simulation_duration_seconds_count 1")
}
