package grid

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacenet/internal/filetree"
	"pacenet/internal/model"
	"pacenet/internal/storage"
)

func TestParseAxis(t *testing.T) {
	a, err := ParseAxis("-100:-60:5")
	require.NoError(t, err)
	assert.Equal(t, Axis{Min: -100, Max: -60, Steps: 5}, a)
	assert.Equal(t, []float64{-100, -90, -80, -70, -60}, a.Values())

	a, err = ParseAxis("0.25")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25}, a.Values())

	for _, bad := range []string{"", "1:2", "a:2:3", "1:b:3", "1:2:c", "2:1:3", "1:2:0"} {
		_, err := ParseAxis(bad)
		assert.Error(t, err, bad)
	}
}

func TestVectorsEnumeratesGrid(t *testing.T) {
	s := Space{
		EK:          Axis{Min: -90, Max: -80, Steps: 2},
		PacemakerGK: Axis{Min: 0, Max: 1, Steps: 3},
		RelayGK:     Axis{Min: 0.1, Max: 0.1, Steps: 1},
	}
	require.NoError(t, s.Validate())
	vectors := s.Vectors()
	require.Len(t, vectors, 6)
	assert.Equal(t, model.ParameterVector{Index: 0, EK: -90, PacemakerGK: 0, RelayGK: 0.1}, vectors[0])
	assert.Equal(t, model.ParameterVector{Index: 4, EK: -80, PacemakerGK: 0.5, RelayGK: 0.1}, vectors[4])
}

func TestRandomStaysInBox(t *testing.T) {
	s := Space{
		EK:          Axis{Min: -100, Max: -60, Steps: 1},
		PacemakerGK: Axis{Min: 0, Max: 2, Steps: 1},
		RelayGK:     Axis{Min: 0.5, Max: 0.5, Steps: 1},
	}
	vectors := s.Random(rand.New(rand.NewSource(1)), 50)
	require.Len(t, vectors, 50)
	for i, v := range vectors {
		assert.Equal(t, i, v.Index)
		assert.GreaterOrEqual(t, v.EK, -100.0)
		assert.Less(t, v.EK, -60.0)
		assert.GreaterOrEqual(t, v.PacemakerGK, 0.0)
		assert.Less(t, v.PacemakerGK, 2.0)
		assert.Equal(t, 0.5, v.RelayGK)
	}
}

func TestSplitBalancesAndReindexes(t *testing.T) {
	vectors := Space{
		EK:          Axis{Min: 0, Max: 9, Steps: 10},
		PacemakerGK: Axis{Steps: 1},
		RelayGK:     Axis{Steps: 1},
	}.Vectors()

	batches, err := Split(vectors, 3)
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 4)
	assert.Len(t, batches[1], 3)
	assert.Len(t, batches[2], 3)
	assert.Equal(t, 4.0, batches[1][0].EK)
	for _, b := range batches {
		for j, v := range b {
			assert.Equal(t, j, v.Index)
		}
	}

	_, err = Split(vectors, 0)
	require.Error(t, err)
	_, err = Split(vectors, 11)
	require.Error(t, err)
}

func TestWriteSplitsUsesOwningRoot(t *testing.T) {
	dir := t.TempDir()
	tree, err := filetree.New(filepath.Join(dir, "a"), filepath.Join(dir, "b"))
	require.NoError(t, err)

	vectors := Space{EK: Axis{Min: -90, Max: -60, Steps: 130}, PacemakerGK: Axis{Steps: 1}, RelayGK: Axis{Steps: 1}}.Vectors()
	batches, err := Split(vectors, 130)
	require.NoError(t, err)

	paths, err := WriteSplits(tree, 2, batches, ".csv")
	require.NoError(t, err)
	require.Len(t, paths, 130)
	assert.Equal(t, filepath.Join(dir, "a", "iteration_2", "splits", "split_0.csv"), paths[0])
	assert.Equal(t, filepath.Join(dir, "b", "iteration_2", "splits", "split_129.csv"), paths[129])

	got, err := storage.ReadBatch(paths[129])
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, -60, got[0].EK, 1e-12)
}
