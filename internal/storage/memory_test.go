package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacenet/internal/model"
)

func testRun(id string, started time.Time) model.RunRecord {
	return Stamp(model.RunRecord{
		ID:        id,
		Split:     3,
		Iteration: 1,
		JobID:     "job-7",
		Status:    model.RunStatusComplete,
		Vectors:   2,
		StartedAt: started,
	})
}

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.SaveRun(ctx, testRun("run-b", base.Add(time.Minute))))
	require.NoError(t, store.SaveRun(ctx, testRun("run-a", base)))

	run, ok, err := store.GetRun(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "job-7", run.JobID)

	_, ok, err = store.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
}

func TestMemoryStoreRejectsUnversionedRun(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	err := store.SaveRun(ctx, model.RunRecord{ID: "raw"})
	require.ErrorIs(t, err, ErrVersionMismatch)
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	require.Error(t, store.SaveVerdicts(context.Background(), "run", nil))
}

func TestMemoryStoreVerdictsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	input := []model.Verdict{{Index: 0, Frequency: 12.5}, {Index: 1, Frequency: model.NoOscillation}}
	require.NoError(t, store.SaveVerdicts(ctx, "run-1", input))
	input[0].Frequency = 99

	output, ok, err := store.GetVerdicts(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 12.5, output[0].Frequency)
	assert.Equal(t, model.NoOscillation, output[1].Frequency)

	_, ok, err = store.GetVerdicts(ctx, "run-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreInitKeepsData(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))
	require.NoError(t, store.SaveVerdicts(ctx, "run-1", []model.Verdict{{Index: 0, Frequency: 1}}))
	require.NoError(t, store.Init(ctx))

	_, ok, err := store.GetVerdicts(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
