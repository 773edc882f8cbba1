package model

import (
	"math"
	"time"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// NoOscillation is the verdict frequency reported when a run does not show
// sustained synchronous oscillation. It is negative so it never collides with
// a measured 0 Hz.
const NoOscillation = -1e-15

// ParameterVector is one point of the conductance sweep.
type ParameterVector struct {
	Index       int     `json:"index"`
	EK          float64 `json:"ek"`
	PacemakerGK float64 `json:"pacemaker_gk"`
	RelayGK     float64 `json:"relay_gk"`
}

// Row returns the vector in batch column order [EK, gKp, gKr].
func (p ParameterVector) Row() []float64 {
	return []float64{p.EK, p.PacemakerGK, p.RelayGK}
}

// VectorFromRow builds a vector from a batch row. Rows shorter than three
// columns are rejected by the caller.
func VectorFromRow(index int, row []float64) ParameterVector {
	return ParameterVector{Index: index, EK: row[0], PacemakerGK: row[1], RelayGK: row[2]}
}

type Verdict struct {
	Index     int     `json:"index"`
	Frequency float64 `json:"frequency"`
}

func (v Verdict) Oscillating() bool {
	return v.Frequency > 0 && !math.IsInf(v.Frequency, 0)
}

type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunRecord summarizes one batch (split) evaluation.
type RunRecord struct {
	VersionedRecord
	ID          string    `json:"id"`
	Split       int       `json:"split"`
	Iteration   int       `json:"iteration"`
	JobID       string    `json:"job_id"`
	Status      RunStatus `json:"status"`
	Vectors     int       `json:"vectors"`
	Oscillating int       `json:"oscillating"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
	Error       string    `json:"error,omitempty"`
}
