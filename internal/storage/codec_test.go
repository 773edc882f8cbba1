package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacenet/internal/model"
)

func TestDecodeRunChecksVersion(t *testing.T) {
	data, err := EncodeRun(Stamp(model.RunRecord{ID: "r1", Split: 4}))
	require.NoError(t, err)
	run, err := DecodeRun(data)
	require.NoError(t, err)
	assert.Equal(t, 4, run.Split)

	stale := model.RunRecord{ID: "r2"}
	stale.SchemaVersion = CurrentSchemaVersion + 1
	stale.CodecVersion = CurrentCodecVersion
	data, err = EncodeRun(stale)
	require.NoError(t, err)
	_, err = DecodeRun(data)
	require.ErrorIs(t, err, ErrVersionMismatch)
}

func TestDecodeVerdictsRejectsGarbage(t *testing.T) {
	_, err := DecodeVerdicts([]byte("{"))
	require.Error(t, err)

	verdicts, err := DecodeVerdicts([]byte(`[{"index":2,"frequency":7.5}]`))
	require.NoError(t, err)
	assert.Equal(t, []model.Verdict{{Index: 2, Frequency: 7.5}}, verdicts)
}
