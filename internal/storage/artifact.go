package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"pacenet/internal/cell"
	"pacenet/internal/classify"
	"pacenet/internal/model"
)

// Artifact is the per-simulation record kept next to a sweep until it is
// archived.
type Artifact struct {
	model.VersionedRecord
	RunID      string                `json:"run_id"`
	Vector     model.ParameterVector `json:"vector"`
	Verdict    model.Verdict         `json:"verdict"`
	Result     classify.Result       `json:"result"`
	DurationMS int64                 `json:"duration_ms"`
	WrittenAt  time.Time             `json:"written_at"`
	Spikes     []cell.SpikeRecord    `json:"spikes,omitempty"`
}

func ArtifactName(index int) string {
	return fmt.Sprintf("sim_%06d.json", index)
}

// WriteArtifact stores a in dir and returns the file path.
func WriteArtifact(dir string, a Artifact) (string, error) {
	a.VersionedRecord = model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
	path := filepath.Join(dir, ArtifactName(a.Vector.Index))
	err := writeAtomic(path, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(a)
	})
	if err != nil {
		return "", fmt.Errorf("write artifact %d: %w", a.Vector.Index, err)
	}
	return path, nil
}

func ReadArtifact(path string) (Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, err
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return Artifact{}, err
	}
	if err := checkVersion(a.VersionedRecord); err != nil {
		return Artifact{}, err
	}
	return a, nil
}
