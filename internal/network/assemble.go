package network

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"pacenet/internal/cell"
	"pacenet/internal/graph"
)

// Network is an assembled nucleus. Cells are indexed by vertex id.
type Network struct {
	Topology Topology
	Graph    *graph.Graph
	Cells    []cell.Cell
}

func (n *Network) Pacemakers() []cell.Cell {
	return n.Cells[:n.Topology.Pacemakers]
}

func (n *Network) Relays() []cell.Cell {
	return n.Cells[n.Topology.Pacemakers:]
}

// SynapseCount is the number of wired synapses across all cells.
func (n *Network) SynapseCount() int {
	total := 0
	for _, c := range n.Cells {
		total += len(c.Synapses())
	}
	return total
}

// Assembler builds networks for one topology. An Assembler owns its random
// source and must not be shared between goroutines.
type Assembler struct {
	topology Topology
	rng      *rand.Rand
}

func NewAssembler(topology Topology, rng *rand.Rand) (*Assembler, error) {
	if err := topology.Validate(); err != nil {
		return nil, fmt.Errorf("invalid topology: %w", err)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Assembler{topology: topology, rng: rng}, nil
}

// Build samples the projection graph, instantiates one cell per vertex,
// lays the cells out in two rings and wires a synapse per edge.
func (a *Assembler) Build(bio Biophysics) (*Network, error) {
	g, err := a.BuildGraph()
	if err != nil {
		return nil, err
	}

	t := a.topology
	cells := make([]cell.Cell, t.Cells())
	for _, id := range g.Vertices() {
		if t.IsPacemaker(id) {
			cells[id] = cell.NewPacemaker(id, bio.PacemakerSoma, bio.PacemakerAxon)
		} else {
			cells[id] = cell.NewRelay(id, bio.RelaySoma, bio.RelayAxon)
		}
	}

	net := &Network{Topology: t, Graph: g, Cells: cells}
	Layout(net)
	if err := a.wire(net); err != nil {
		return nil, err
	}
	return net, nil
}

// BuildGraph creates one vertex per cell and the projection edges of every
// pacemaker. Relays get no outgoing edges.
func (a *Assembler) BuildGraph() (*graph.Graph, error) {
	t := a.topology
	g := graph.New()
	for id := 0; id < t.Cells(); id++ {
		g.AddVertex(id)
	}

	for src := 0; src < t.Pacemakers; src++ {
		targets := sampleExcluding(a.rng, 0, t.Pacemakers, t.PacemakerProjections, src)
		targets = append(targets, sampleExcluding(a.rng, t.Pacemakers, t.Cells(), t.RelayProjections, -1)...)
		for _, dst := range targets {
			if err := g.AddEdge(src, dst); err != nil {
				return nil, fmt.Errorf("project pacemaker %d: %w", src, err)
			}
		}
	}
	return g, nil
}

func (a *Assembler) wire(net *Network) error {
	t := net.Topology
	span := t.ConductanceMax - t.ConductanceMin
	for _, src := range net.Graph.Vertices() {
		pre := net.Cells[src]
		for _, dst := range net.Graph.EdgesOf(src) {
			g := t.ConductanceMin + a.rng.Float64()*span
			if err := pre.AddSynapse(net.Cells[dst], g); err != nil {
				return fmt.Errorf("wire %d->%d: %w", src, dst, err)
			}
		}
	}
	return nil
}

// sampleExcluding draws k distinct ids uniformly from [lo, hi) without
// exclude, using a partial Fisher-Yates shuffle over the candidate pool.
func sampleExcluding(rng *rand.Rand, lo, hi, k int, exclude int) []int {
	pool := make([]int, 0, hi-lo)
	for id := lo; id < hi; id++ {
		if id != exclude {
			pool = append(pool, id)
		}
	}
	if k > len(pool) {
		k = len(pool)
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// Layout places relays on an inner ring and pacemakers on an outer ring
// around the nucleus center, each rotated to face along its ring angle.
// The extra 0.001 on the pacemaker radius keeps the rings apart.
func Layout(net *Network) {
	pacemakers := net.Pacemakers()
	relays := net.Relays()
	if len(pacemakers) == 0 || len(relays) == 0 {
		return
	}

	lenPace := pacemakers[0].Length()
	lenRelay := relays[0].Length()

	relayRadius := RelayRadius(lenRelay)
	dRelay := 2 * math.Pi / float64(len(relays))
	for k, c := range relays {
		theta := math.Pi + float64(k)*dRelay
		c.SetPosition(relayRadius*math.Cos(theta), relayRadius*math.Sin(theta), 0)
		c.RotateZ(float64(k) * dRelay)
	}

	paceRadius := PacemakerRadius(lenPace, lenRelay)
	dPace := 2 * math.Pi / float64(len(pacemakers))
	for k, c := range pacemakers {
		theta := math.Pi + float64(k)*dPace
		c.SetPosition(paceRadius*math.Cos(theta), paceRadius*math.Sin(theta), 0)
		c.RotateZ(float64(k) * dPace)
	}
}

func RelayRadius(lenRelay float64) float64 {
	return lenRelay + 10
}

func PacemakerRadius(lenPace, lenRelay float64) float64 {
	return lenPace + lenRelay + 10.001
}
