// Package cell holds the two-compartment pacemaker and relay cell models.
// A cell is created for one simulation run, placed and wired by the network
// assembler, and receives its spike record from the simulation engine.
package cell

import (
	"errors"
	"fmt"
	"math"
)

var ErrRelayProjection = errors.New("relay cells do not project synapses")

type Kind string

const (
	KindPacemaker Kind = "pacemaker"
	KindRelay     Kind = "relay"
)

// Compartment carries the biophysical constants of a soma or axon section.
// Potentials are in mV, conductances in S/cm2, Length in um.
type Compartment struct {
	EK     float64 `json:"ek"`
	ENa    float64 `json:"ena"`
	EL     float64 `json:"el"`
	GNa    float64 `json:"gna"`
	GK     float64 `json:"gk"`
	GL     float64 `json:"gl"`
	Length float64 `json:"length"`
}

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Pose is a cell's placement. Cells start at the origin with the axon
// pointing along +x; RotationZ is the accumulated rotation about the
// vertical axis in radians.
type Pose struct {
	Position  Vec3    `json:"position"`
	RotationZ float64 `json:"rotation_z"`
}

// Synapse is an outgoing connection. Conductance is in nS.
type Synapse struct {
	Target      int     `json:"target"`
	Conductance float64 `json:"conductance"`
}

// SpikeRecord holds spike times (ms) per compartment and the engine's time
// axis.
type SpikeRecord struct {
	Soma []float64 `json:"soma"`
	Axon []float64 `json:"axon"`
	Time []float64 `json:"time,omitempty"`
}

type Cell interface {
	ID() int
	Kind() Kind
	Soma() Compartment
	Axon() Compartment
	Length() float64
	Pose() Pose
	SetPosition(x, y, z float64)
	RotateZ(theta float64)
	AxonTip() Vec3
	AddSynapse(target Cell, conductance float64) error
	Synapses() []Synapse
	SetSpikes(record SpikeRecord)
	Spikes() SpikeRecord
}

type base struct {
	id     int
	soma   Compartment
	axon   Compartment
	pose   Pose
	spikes SpikeRecord
}

func (b *base) ID() int           { return b.id }
func (b *base) Soma() Compartment { return b.soma }
func (b *base) Axon() Compartment { return b.axon }
func (b *base) Pose() Pose        { return b.pose }

// Length is the total soma plus axon length.
func (b *base) Length() float64 {
	return b.soma.Length + b.axon.Length
}

func (b *base) SetPosition(x, y, z float64) {
	b.pose.Position = Vec3{X: x, Y: y, Z: z}
}

func (b *base) RotateZ(theta float64) {
	b.pose.RotationZ = math.Mod(b.pose.RotationZ+theta, 2*math.Pi)
}

// AxonTip is the far end of the axon after positioning and rotation.
func (b *base) AxonTip() Vec3 {
	l := b.Length()
	return Vec3{
		X: b.pose.Position.X + l*math.Cos(b.pose.RotationZ),
		Y: b.pose.Position.Y + l*math.Sin(b.pose.RotationZ),
		Z: b.pose.Position.Z,
	}
}

func (b *base) SetSpikes(record SpikeRecord) { b.spikes = record }
func (b *base) Spikes() SpikeRecord          { return b.spikes }

type Pacemaker struct {
	base
	synapses []Synapse
}

func NewPacemaker(id int, soma, axon Compartment) *Pacemaker {
	return &Pacemaker{base: base{id: id, soma: soma, axon: axon}}
}

func (p *Pacemaker) Kind() Kind { return KindPacemaker }

func (p *Pacemaker) AddSynapse(target Cell, conductance float64) error {
	if target == nil {
		return fmt.Errorf("pacemaker %d: synapse target is required", p.id)
	}
	if target.ID() == p.id {
		return fmt.Errorf("pacemaker %d: synapse onto itself", p.id)
	}
	p.synapses = append(p.synapses, Synapse{Target: target.ID(), Conductance: conductance})
	return nil
}

func (p *Pacemaker) Synapses() []Synapse {
	out := make([]Synapse, len(p.synapses))
	copy(out, p.synapses)
	return out
}

// Relay only receives synapses.
type Relay struct {
	base
}

func NewRelay(id int, soma, axon Compartment) *Relay {
	return &Relay{base: base{id: id, soma: soma, axon: axon}}
}

func (r *Relay) Kind() Kind { return KindRelay }

func (r *Relay) AddSynapse(_ Cell, _ float64) error {
	return fmt.Errorf("relay %d: %w", r.id, ErrRelayProjection)
}

func (r *Relay) Synapses() []Synapse { return nil }
