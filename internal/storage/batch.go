package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pacenet/internal/model"
)

var ResultColumns = []string{"ek", "pacemaker_gk", "relay_gk", "frequency"}

type batchFile struct {
	Rows [][]float64 `json:"rows"`
}

type resultsFile struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// ReadBatch loads parameter vectors from a JSON ({"rows": [[ek, gkp, gkr], ...]})
// or CSV file. Vector indexes follow row order.
func ReadBatch(path string) ([]model.ParameterVector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch: %w", err)
	}
	defer f.Close()

	var rows [][]float64
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSVRows(f)
	case ".json":
		rows, err = readJSONRows(f)
	default:
		return nil, fmt.Errorf("unsupported batch format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read batch %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("batch %s has no rows", path)
	}

	vectors := make([]model.ParameterVector, len(rows))
	for i, row := range rows {
		if len(row) < 3 {
			return nil, fmt.Errorf("batch %s row %d: want 3 columns, got %d", path, i, len(row))
		}
		vectors[i] = model.VectorFromRow(i, row)
	}
	return vectors, nil
}

// WriteBatch writes vectors in the format implied by the path extension.
func WriteBatch(path string, vectors []model.ParameterVector) error {
	rows := make([][]float64, len(vectors))
	for i, v := range vectors {
		rows[i] = v.Row()
	}
	return writeRows(path, []string{"ek", "pacemaker_gk", "relay_gk"}, rows, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(batchFile{Rows: rows})
	})
}

// WriteResults writes one row per vector: its parameters followed by the
// verdict frequency. verdicts are matched to vectors by index.
func WriteResults(path string, vectors []model.ParameterVector, verdicts []model.Verdict) error {
	if len(vectors) != len(verdicts) {
		return fmt.Errorf("results mismatch: %d vectors, %d verdicts", len(vectors), len(verdicts))
	}
	byIndex := make(map[int]float64, len(verdicts))
	for _, v := range verdicts {
		byIndex[v.Index] = v.Frequency
	}
	rows := make([][]float64, len(vectors))
	for i, vec := range vectors {
		freq, ok := byIndex[vec.Index]
		if !ok {
			return fmt.Errorf("missing verdict for vector %d", vec.Index)
		}
		rows[i] = append(vec.Row(), freq)
	}
	return writeRows(path, ResultColumns, rows, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resultsFile{Columns: ResultColumns, Rows: rows})
	})
}

// ReadResults loads a results file written by WriteResults.
func ReadResults(path string) ([]model.ParameterVector, []model.Verdict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open results: %w", err)
	}
	defer f.Close()

	var rows [][]float64
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSVRows(f)
	case ".json":
		var file resultsFile
		err = json.NewDecoder(f).Decode(&file)
		rows = file.Rows
	default:
		return nil, nil, fmt.Errorf("unsupported results format: %s", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read results %s: %w", path, err)
	}

	vectors := make([]model.ParameterVector, len(rows))
	verdicts := make([]model.Verdict, len(rows))
	for i, row := range rows {
		if len(row) < 4 {
			return nil, nil, fmt.Errorf("results %s row %d: want 4 columns, got %d", path, i, len(row))
		}
		vectors[i] = model.VectorFromRow(i, row)
		verdicts[i] = model.Verdict{Index: i, Frequency: row[3]}
	}
	return vectors, verdicts, nil
}

func writeRows(path string, header []string, rows [][]float64, encodeJSON func(io.Writer) error) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".json" {
		return fmt.Errorf("unsupported output format: %s", path)
	}
	return writeAtomic(path, func(w io.Writer) error {
		if ext == ".json" {
			return encodeJSON(w)
		}
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, row := range rows {
			record := make([]string, len(row))
			for i, v := range row {
				record[i] = strconv.FormatFloat(v, 'g', -1, 64)
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func readJSONRows(r io.Reader) ([][]float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var file batchFile
	if err := json.Unmarshal(data, &file); err == nil && file.Rows != nil {
		return file.Rows, nil
	}
	var rows [][]float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// readCSVRows parses numeric rows, skipping a leading header row.
func readCSVRows(r io.Reader) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	rows := make([][]float64, 0, len(records))
	for i, record := range records {
		row := make([]float64, len(record))
		numeric := true
		for j, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				numeric = false
				break
			}
			row[j] = v
		}
		if !numeric {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("line %d: non-numeric field", i+1)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// writeAtomic writes through a temp file in the target directory and renames
// it into place, so readers never observe a partial file.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if err := write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
