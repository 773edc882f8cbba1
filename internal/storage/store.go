package storage

import (
	"context"

	"pacenet/internal/model"
)

// Store persists sweep runs and their verdicts.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveVerdicts(ctx context.Context, runID string, verdicts []model.Verdict) error
	GetVerdicts(ctx context.Context, runID string) ([]model.Verdict, bool, error)
}
