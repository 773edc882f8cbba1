package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddVertexIsIdempotent(t *testing.T) {
	g := New()
	g.AddVertex(3)
	g.AddVertex(3)
	g.AddVertex(1)

	assert.Equal(t, []int{1, 3}, g.Vertices())
	assert.Equal(t, 2, g.VertexCount())
}

func TestAddEdgeRequiresBothEndpoints(t *testing.T) {
	g := New()
	g.AddVertex(0)

	err := g.AddEdge(0, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownVertex))

	err = g.AddEdge(2, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownVertex))
	assert.Zero(t, g.EdgeCount())
}

func TestAddEdgeRejectsSelfLoop(t *testing.T) {
	g := New()
	g.AddVertex(0)

	err := g.AddEdge(0, 0)
	require.ErrorIs(t, err, ErrSelfLoop)
	assert.Empty(t, g.EdgesOf(0))
}

func TestEdgesOf(t *testing.T) {
	g := New()
	for i := 0; i < 4; i++ {
		g.AddVertex(i)
	}
	require.NoError(t, g.AddEdge(0, 3))
	require.NoError(t, g.AddEdge(0, 1))
	require.NoError(t, g.AddEdge(0, 1))

	assert.Equal(t, []int{1, 3}, g.EdgesOf(0))
	assert.Empty(t, g.EdgesOf(2))
	assert.Empty(t, g.EdgesOf(99))
	assert.Equal(t, 2, g.EdgeCount())
}
