// Package metrics exposes Prometheus counters for simulation sweeps.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	VerdictOscillating = "oscillating"
	VerdictSilent      = "silent"
	VerdictFailed      = "failed"
)

// Collector holds the sweep metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	Simulations  *prometheus.CounterVec
	Duration     prometheus.Histogram
	Frequency    prometheus.Histogram
	Archives     prometheus.Counter
	ArchiveBytes prometheus.Counter
	Batches      *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Simulations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "simulations_total",
				Help:      "Simulations finished, by verdict.",
			},
			[]string{"verdict"},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "simulation_duration_seconds",
				Help:      "Wall time of one simulation including assembly and classification.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
			},
		),
		Frequency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "oscillation_frequency_hertz",
				Help:      "Relay frequency of oscillating simulations.",
				Buckets:   prometheus.LinearBuckets(0, 25, 16),
			},
		),
		Archives: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archives_total",
				Help:      "Artifact archives written.",
			},
		),
		ArchiveBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archive_bytes_total",
				Help:      "Compressed bytes written to artifact archives.",
			},
		),
		Batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_total",
				Help:      "Batches processed, by status.",
			},
			[]string{"status"},
		),
	}
	c.registry.MustRegister(
		c.Simulations,
		c.Duration,
		c.Frequency,
		c.Archives,
		c.ArchiveBytes,
		c.Batches,
		collectors.NewGoCollector(),
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveSimulation records one finished simulation.
func (c *Collector) ObserveSimulation(frequency float64, elapsed time.Duration) {
	verdict := VerdictSilent
	if frequency > 0 {
		verdict = VerdictOscillating
		c.Frequency.Observe(frequency)
	}
	c.Simulations.WithLabelValues(verdict).Inc()
	c.Duration.Observe(elapsed.Seconds())
}

func (c *Collector) ObserveFailure() {
	c.Simulations.WithLabelValues(VerdictFailed).Inc()
}

func (c *Collector) ObserveArchive(compressed int64) {
	c.Archives.Inc()
	c.ArchiveBytes.Add(float64(compressed))
}

func (c *Collector) ObserveBatch(status string) {
	c.Batches.WithLabelValues(status).Inc()
}

// WriteTextfile writes the registry in text exposition format for the node
// exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
