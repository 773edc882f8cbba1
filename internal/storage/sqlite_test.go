//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacenet/internal/model"
)

func TestSQLiteStoreRunAndVerdictRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "pacenet.db"))
	require.NoError(t, store.Init(ctx))
	t.Cleanup(func() {
		_ = store.Close()
	})

	run := testRun("run-1", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, store.SaveRun(ctx, run))
	run.Status = model.RunStatusFailed
	run.Error = "engine crashed"
	require.NoError(t, store.SaveRun(ctx, run))

	loaded, ok, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.RunStatusFailed, loaded.Status)
	assert.Equal(t, "engine crashed", loaded.Error)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	verdicts := []model.Verdict{{Index: 1, Frequency: model.NoOscillation}, {Index: 0, Frequency: 41.5}}
	require.NoError(t, store.SaveVerdicts(ctx, "run-1", verdicts))
	require.NoError(t, store.SaveVerdicts(ctx, "run-1", verdicts))

	got, ok, err := store.GetVerdicts(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 41.5, got[0].Frequency)
	assert.Equal(t, model.NoOscillation, got[1].Frequency)
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	require.Error(t, NewSQLiteStore("").Init(context.Background()))
}
