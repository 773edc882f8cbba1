// Package grid generates the parameter vectors of a sweep and partitions them
// into split batches.
package grid

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"pacenet/internal/filetree"
	"pacenet/internal/model"
	"pacenet/internal/storage"
)

// Axis spans Steps evenly spaced values from Min to Max inclusive.
type Axis struct {
	Min   float64
	Max   float64
	Steps int
}

// ParseAxis reads "min:max:steps" or a single fixed value.
func ParseAxis(s string) (Axis, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return Axis{}, fmt.Errorf("axis %q: %w", s, err)
		}
		return Axis{Min: v, Max: v, Steps: 1}, nil
	case 3:
		lo, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return Axis{}, fmt.Errorf("axis %q min: %w", s, err)
		}
		hi, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return Axis{}, fmt.Errorf("axis %q max: %w", s, err)
		}
		steps, err := strconv.Atoi(parts[2])
		if err != nil {
			return Axis{}, fmt.Errorf("axis %q steps: %w", s, err)
		}
		a := Axis{Min: lo, Max: hi, Steps: steps}
		return a, a.Validate()
	default:
		return Axis{}, fmt.Errorf("axis %q: want min:max:steps or a single value", s)
	}
}

func (a Axis) Validate() error {
	if a.Steps < 1 {
		return fmt.Errorf("axis steps must be >= 1")
	}
	if a.Max < a.Min {
		return fmt.Errorf("axis max %g is below min %g", a.Max, a.Min)
	}
	return nil
}

func (a Axis) Values() []float64 {
	if a.Steps <= 1 {
		return []float64{a.Min}
	}
	out := make([]float64, a.Steps)
	step := (a.Max - a.Min) / float64(a.Steps-1)
	for i := range out {
		out[i] = a.Min + float64(i)*step
	}
	out[len(out)-1] = a.Max
	return out
}

func (a Axis) sample(rng *rand.Rand) float64 {
	span := a.Max - a.Min
	if span == 0 {
		return a.Min
	}
	return a.Min + rng.Float64()*span
}

// Space is the swept parameter box.
type Space struct {
	EK          Axis
	PacemakerGK Axis
	RelayGK     Axis
}

func (s Space) Validate() error {
	for name, a := range map[string]Axis{"ek": s.EK, "pacemaker_gk": s.PacemakerGK, "relay_gk": s.RelayGK} {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Vectors enumerates the full grid with EK varying slowest.
func (s Space) Vectors() []model.ParameterVector {
	eks, pgks, rgks := s.EK.Values(), s.PacemakerGK.Values(), s.RelayGK.Values()
	out := make([]model.ParameterVector, 0, len(eks)*len(pgks)*len(rgks))
	for _, ek := range eks {
		for _, pgk := range pgks {
			for _, rgk := range rgks {
				out = append(out, model.ParameterVector{Index: len(out), EK: ek, PacemakerGK: pgk, RelayGK: rgk})
			}
		}
	}
	return out
}

// Random draws n vectors uniformly from the box.
func (s Space) Random(rng *rand.Rand, n int) []model.ParameterVector {
	out := make([]model.ParameterVector, n)
	for i := range out {
		out[i] = model.ParameterVector{
			Index:       i,
			EK:          s.EK.sample(rng),
			PacemakerGK: s.PacemakerGK.sample(rng),
			RelayGK:     s.RelayGK.sample(rng),
		}
	}
	return out
}

// Split partitions vectors into n contiguous batches whose sizes differ by
// at most one. Indexes restart at zero in every batch.
func Split(vectors []model.ParameterVector, n int) ([][]model.ParameterVector, error) {
	if n < 1 {
		return nil, fmt.Errorf("split count must be >= 1")
	}
	if n > len(vectors) {
		return nil, fmt.Errorf("cannot split %d vectors into %d batches", len(vectors), n)
	}
	out := make([][]model.ParameterVector, n)
	size, extra := len(vectors)/n, len(vectors)%n
	start := 0
	for i := range out {
		end := start + size
		if i < extra {
			end++
		}
		batch := make([]model.ParameterVector, end-start)
		for j, v := range vectors[start:end] {
			v.Index = j
			batch[j] = v
		}
		out[i] = batch
		start = end
	}
	return out, nil
}

// WriteSplits stores batch i as split i of iteration under the root that
// owns it and returns the written paths.
func WriteSplits(p filetree.Provider, iteration int, batches [][]model.ParameterVector, ext string) ([]string, error) {
	paths := make([]string, 0, len(batches))
	for split, batch := range batches {
		dir, err := p.SplitsDir(filetree.RootFor(split), iteration, split)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		path := filetree.BatchFile(dir, split, ext)
		if err := storage.WriteBatch(path, batch); err != nil {
			return nil, fmt.Errorf("split %d: %w", split, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
