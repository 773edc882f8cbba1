// Package graph holds the directed projection graph between cell ids.
package graph

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownVertex is returned by AddEdge when an endpoint was never added.
	ErrUnknownVertex = errors.New("unknown vertex")
	// ErrSelfLoop is returned by AddEdge when src equals dst.
	ErrSelfLoop = errors.New("self loop")
)

// Graph is a directed graph over integer vertex ids. Vertices and edges are
// only ever added.
type Graph struct {
	adjacency map[int]map[int]struct{}
}

func New() *Graph {
	return &Graph{adjacency: make(map[int]map[int]struct{})}
}

// AddVertex inserts id. Adding an existing vertex is a no-op.
func (g *Graph) AddVertex(id int) {
	if _, ok := g.adjacency[id]; ok {
		return
	}
	g.adjacency[id] = make(map[int]struct{})
}

func (g *Graph) HasVertex(id int) bool {
	_, ok := g.adjacency[id]
	return ok
}

// AddEdge adds the directed edge src->dst. Both endpoints must already exist.
func (g *Graph) AddEdge(src, dst int) error {
	if src == dst {
		return fmt.Errorf("edge %d->%d: %w", src, dst, ErrSelfLoop)
	}
	out, ok := g.adjacency[src]
	if !ok {
		return fmt.Errorf("edge %d->%d: source %w", src, dst, ErrUnknownVertex)
	}
	if _, ok := g.adjacency[dst]; !ok {
		return fmt.Errorf("edge %d->%d: destination %w", src, dst, ErrUnknownVertex)
	}
	out[dst] = struct{}{}
	return nil
}

// Vertices returns all vertex ids in ascending order.
func (g *Graph) Vertices() []int {
	ids := make([]int, 0, len(g.adjacency))
	for id := range g.adjacency {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// EdgesOf returns the destinations of id in ascending order, or an empty
// slice when id has no outgoing edges or is unknown.
func (g *Graph) EdgesOf(id int) []int {
	out := g.adjacency[id]
	dst := make([]int, 0, len(out))
	for to := range out {
		dst = append(dst, to)
	}
	sort.Ints(dst)
	return dst
}

func (g *Graph) VertexCount() int {
	return len(g.adjacency)
}

func (g *Graph) EdgeCount() int {
	n := 0
	for _, out := range g.adjacency {
		n += len(out)
	}
	return n
}
