// Package stats summarizes sweep verdicts and keeps a per-directory index of
// finished batch runs.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"pacenet/internal/model"
)

const runIndexFile = "run_index.json"

// TimeLayout is the fixed-width UTC layout of RunIndexEntry.CreatedAtUTC.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FrequencySummary describes the verdicts of one batch. The frequency
// moments cover oscillating verdicts only.
type FrequencySummary struct {
	Vectors     int     `json:"vectors"`
	Oscillating int     `json:"oscillating"`
	Silent      int     `json:"silent"`
	Fraction    float64 `json:"fraction"`
	MeanHz      float64 `json:"mean_hz"`
	StdHz       float64 `json:"std_hz"`
	MinHz       float64 `json:"min_hz"`
	MaxHz       float64 `json:"max_hz"`
}

func Summarize(verdicts []model.Verdict) FrequencySummary {
	s := FrequencySummary{Vectors: len(verdicts)}
	freqs := make([]float64, 0, len(verdicts))
	for _, v := range verdicts {
		if v.Oscillating() {
			freqs = append(freqs, v.Frequency)
		}
	}
	s.Oscillating = len(freqs)
	s.Silent = s.Vectors - s.Oscillating
	if s.Vectors > 0 {
		s.Fraction = float64(s.Oscillating) / float64(s.Vectors)
	}
	s.MeanHz, s.StdHz, s.MaxHz, s.MinHz = seriesStats(freqs)
	return s
}

func seriesStats(values []float64) (mean, std, max, min float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	mean, std = stat.PopMeanStdDev(values, nil)
	return mean, std, floats.Max(values), floats.Min(values)
}

type RunIndexEntry struct {
	RunID        string           `json:"run_id"`
	JobID        string           `json:"job_id"`
	Split        int              `json:"split"`
	Iteration    int              `json:"iteration"`
	ResultsPath  string           `json:"results_path"`
	Summary      FrequencySummary `json:"summary"`
	CreatedAtUTC string           `json:"created_at_utc"`
}

// AppendRunIndex adds entry to the index in baseDir, replacing an entry with
// the same run id.
func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the entries of baseDir, newest first. Entries with
// equal timestamps list the later appended one first. A missing index is
// empty.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		at    time.Time
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		at, _ := time.Parse(time.RFC3339Nano, entries[i].CreatedAtUTC)
		indexed[i] = indexedEntry{entry: entries[i], at: at, idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].at.Equal(indexed[j].at) {
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].at.After(indexed[j].at)
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// readRunIndex returns the entries in append order.
func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return entries, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
