package engine

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"pacenet/internal/cell"
	"pacenet/internal/network"
)

const LIFName = "lif"

// LIFParams parameterize the reference engine. Membrane quantities are in mV
// and ms; intrinsic and synaptic drive are expressed as the mV shift of the
// steady-state potential.
type LIFParams struct {
	Tau                float64
	Threshold          float64
	Reset              float64
	Refractory         float64
	DriveGain          float64
	GKScale            float64
	EKGain             float64
	EKRef              float64
	SynGain            float64
	SynTau             float64
	SynDelay           float64
	ConductionVelocity float64
	Q10                float64
	RefTemperature     float64
	MaxDt              float64
	NearThreshold      float64
}

func DefaultLIFParams() LIFParams {
	return LIFParams{
		Tau:                10,
		Threshold:          -54,
		Reset:              -70,
		Refractory:         2,
		DriveGain:          24,
		GKScale:            0.5,
		EKGain:             0.2,
		EKRef:              -80,
		SynGain:            0.8,
		SynTau:             5,
		SynDelay:           0.5,
		ConductionVelocity: 100,
		Q10:                3,
		RefTemperature:     27,
		MaxDt:              0.1,
		NearThreshold:      2,
	}
}

// LIF is a leaky integrate-and-fire stand-in for the biophysical solver.
// Intrinsic drive grows with somatic Na conductance and shrinks with somatic
// K conductance and more negative EK, which reproduces the qualitative
// sweep behavior without integrating ion channels.
type LIF struct {
	params LIFParams
}

func NewLIF(params LIFParams) *LIF {
	return &LIF{params: params}
}

func (e *LIF) Name() string { return LIFName }

// Drive is the intrinsic steady-state depolarization of a soma.
func (e *LIF) Drive(soma cell.Compartment) float64 {
	p := e.params
	return p.DriveGain*soma.GNa*math.Exp(-soma.GK/p.GKScale) + p.EKGain*(soma.EK-p.EKRef)
}

func (e *LIF) axonDelay(c cell.Cell) float64 {
	return c.Axon().Length / e.params.ConductionVelocity
}

func (e *LIF) Run(ctx context.Context, cfg Config, net *network.Network) error {
	if net == nil || len(net.Cells) == 0 {
		return fmt.Errorf("network is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	p := e.params
	tau := p.Tau / math.Pow(p.Q10, (cfg.Temperature-p.RefTemperature)/10)
	n := len(net.Cells)
	v := make([]float64, n)
	isyn := make([]float64, n)
	drive := make([]float64, n)
	refractoryUntil := make([]float64, n)
	soma := make([][]float64, n)
	axon := make([][]float64, n)
	for i, c := range net.Cells {
		v[i] = cfg.InitVoltage
		drive[i] = e.Drive(c.Soma())
	}

	pending := &arrivals{}
	timeAxis := []float64{0}
	t := 0.0
	for step := 0; t < cfg.StopTime; step++ {
		if step%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		dt := cfg.Dt
		if cfg.VariableStep {
			dt = e.adaptiveStep(cfg, v, pending, t)
		}
		if t+dt > cfg.StopTime {
			dt = cfg.StopTime - t
		}
		next := t + dt

		for pending.Len() > 0 && (*pending)[0].at <= next {
			a := heap.Pop(pending).(arrival)
			isyn[a.target] += a.weight
		}

		decay := math.Exp(-dt / p.SynTau)
		for i, c := range net.Cells {
			isyn[i] *= decay
			if next < refractoryUntil[i] {
				continue
			}
			el := c.Soma().EL
			vinf := el + drive[i] + isyn[i]
			v[i] = vinf + (v[i]-vinf)*math.Exp(-dt/tau)
			if v[i] < p.Threshold {
				continue
			}

			v[i] = p.Reset
			refractoryUntil[i] = next + p.Refractory
			soma[i] = append(soma[i], next)
			delay := e.axonDelay(c)
			axon[i] = append(axon[i], next+delay)
			for _, syn := range c.Synapses() {
				heap.Push(pending, arrival{
					at:     next + delay + p.SynDelay,
					target: syn.Target,
					weight: syn.Conductance * p.SynGain,
				})
			}
		}

		t = next
		timeAxis = append(timeAxis, t)
	}

	for i, c := range net.Cells {
		c.SetSpikes(cell.SpikeRecord{Soma: soma[i], Axon: axon[i], Time: timeAxis})
	}
	return nil
}

// adaptiveStep takes the fine step whenever a cell is close to threshold or
// a synaptic event lands within the coarse step.
func (e *LIF) adaptiveStep(cfg Config, v []float64, pending *arrivals, t float64) float64 {
	coarse := math.Max(e.params.MaxDt, cfg.Dt)
	if pending.Len() > 0 && (*pending)[0].at < t+coarse {
		return cfg.Dt
	}
	for _, vi := range v {
		if e.params.Threshold-vi < e.params.NearThreshold {
			return cfg.Dt
		}
	}
	return coarse
}

type arrival struct {
	at     float64
	target int
	weight float64
}

type arrivals []arrival

func (a arrivals) Len() int           { return len(a) }
func (a arrivals) Less(i, j int) bool { return a[i].at < a[j].at }
func (a arrivals) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a *arrivals) Push(x any)        { *a = append(*a, x.(arrival)) }
func (a *arrivals) Pop() any {
	old := *a
	last := old[len(old)-1]
	*a = old[:len(old)-1]
	return last
}
