// Package classify decides whether a simulated nucleus shows sustained
// synchronous oscillation (SSO) from the somatic spike trains of its cells.
//
// The first part of a run is treated as equilibration. A run is classified as
// SSO when at least one cell fired twice, the fastest pacemaker and the
// fastest relay are still firing near the end of the run, and their
// frequencies match within a relative tolerance.
package classify

import (
	"fmt"
	"math"

	"pacenet/internal/model"
)

// Thresholds are the calibration constants of the classifier. The
// continuation window is StopTime/WindowDivisor + WindowOffset ms before the
// end of the run.
type Thresholds struct {
	StopTime      float64 `json:"stop_time" yaml:"stop_time" validate:"gt=0"`
	WindowDivisor float64 `json:"window_divisor" yaml:"window_divisor" validate:"gt=0"`
	WindowOffset  float64 `json:"window_offset" yaml:"window_offset" validate:"gte=0"`
	RelTolerance  float64 `json:"rel_tolerance" yaml:"rel_tolerance" validate:"gte=0"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		StopTime:      100,
		WindowDivisor: 3,
		WindowOffset:  7,
		RelTolerance:  0.5,
	}
}

func (t Thresholds) Window() float64 {
	return t.StopTime/t.WindowDivisor + t.WindowOffset
}

// CellRate is the last-interval firing rate of one cell.
type CellRate struct {
	ID        int     `json:"id"`
	Frequency float64 `json:"frequency"`
	LastSpike float64 `json:"last_spike"`
	Spikes    int     `json:"spikes"`
}

type Result struct {
	Frequency         float64  `json:"frequency"`
	Pacemaker         CellRate `json:"pacemaker"`
	Relay             CellRate `json:"relay"`
	HasFiredEnough    bool     `json:"has_fired_enough"`
	ContinueFiring    bool     `json:"continue_firing"`
	FireSynchronously bool     `json:"fire_synchronously"`
}

func (r Result) Oscillating() bool {
	return r.HasFiredEnough && r.ContinueFiring && r.FireSynchronously
}

type Classifier struct {
	thresholds Thresholds
}

func New(thresholds Thresholds) (*Classifier, error) {
	if thresholds.StopTime <= 0 {
		return nil, fmt.Errorf("stop time must be > 0")
	}
	if thresholds.WindowDivisor <= 0 {
		return nil, fmt.Errorf("window divisor must be > 0")
	}
	if thresholds.RelTolerance < 0 {
		return nil, fmt.Errorf("relative tolerance must be >= 0")
	}
	return &Classifier{thresholds: thresholds}, nil
}

func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify inspects somatic spike trains indexed by cell id. Ids below
// pacemakers belong to the pacemaker population, the rest are relays. Both
// populations must be non-empty.
func (c *Classifier) Classify(soma [][]float64, pacemakers int) (Result, error) {
	if pacemakers <= 0 || pacemakers >= len(soma) {
		return Result{}, fmt.Errorf("population split %d invalid for %d cells", pacemakers, len(soma))
	}

	var res Result
	res.Pacemaker = CellRate{ID: -1, Frequency: -1}
	res.Relay = CellRate{ID: -1, Frequency: -1}
	for id, spikes := range soma {
		rate := LastIntervalRate(id, spikes)
		if rate.Spikes > 1 {
			res.HasFiredEnough = true
		}
		best := &res.Relay
		if id < pacemakers {
			best = &res.Pacemaker
		}
		// strict > keeps the lowest id among equal frequencies
		if rate.Frequency > best.Frequency {
			*best = rate
		}
	}

	t := c.thresholds
	if res.Pacemaker.Frequency > 0 && res.Relay.Frequency > 0 {
		window := t.Window()
		res.ContinueFiring = t.StopTime-res.Pacemaker.LastSpike < window &&
			t.StopTime-res.Relay.LastSpike < window
	}
	res.FireSynchronously = Close(res.Pacemaker.Frequency, res.Relay.Frequency, t.RelTolerance)

	res.Frequency = model.NoOscillation
	if res.Oscillating() {
		res.Frequency = res.Relay.Frequency
	}
	return res, nil
}

// LastIntervalRate converts the last inter-spike interval (ms) to Hz. Cells
// with fewer than two spikes have rate 0.
func LastIntervalRate(id int, spikes []float64) CellRate {
	rate := CellRate{ID: id, Spikes: len(spikes)}
	if len(spikes) == 0 {
		return rate
	}
	rate.LastSpike = spikes[len(spikes)-1]
	if len(spikes) < 2 {
		return rate
	}
	interval := spikes[len(spikes)-1] - spikes[len(spikes)-2]
	if interval > 0 {
		rate.Frequency = 1000 / interval
	}
	return rate
}

// Close reports |a-b| <= rtol*max(|a|,|b|).
func Close(a, b, rtol float64) bool {
	return math.Abs(a-b) <= rtol*math.Max(math.Abs(a), math.Abs(b))
}
