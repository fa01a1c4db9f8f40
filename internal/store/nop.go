package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/amishk599/jobsync/internal/model"
)

// NopStore is a no-op store used in dry-run mode. Nothing is persisted, so
// every job counts as new on each run and there is never a cursor.
type NopStore struct {
	nextID atomic.Int64
}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) UpsertJobs(_ context.Context, jobs []model.CanonicalJob, _ time.Time) (model.UpsertResult, error) {
	return model.UpsertResult{Inserted: len(jobs)}, nil
}

func (s *NopStore) GetJob(context.Context, string) (model.CanonicalJob, error) {
	return model.CanonicalJob{}, model.ErrNotFound
}

func (s *NopStore) DeactivateStale(context.Context, time.Time) (int64, error) { return 0, nil }

func (s *NopStore) StartRun(context.Context, string, time.Time) (int64, error) {
	return s.nextID.Add(1), nil
}

func (s *NopStore) FinishRun(_ context.Context, run model.SyncRun) error { return checkTerminal(run) }
func (s *NopStore) LastCursor(context.Context, string) (string, error)  { return "", nil }

func (s *NopStore) ListRuns(context.Context, string, int) ([]model.SyncRun, error) { return nil, nil }

func (s *NopStore) AbandonStale(context.Context, time.Time, string) (int64, error) { return 0, nil }

func (s *NopStore) RecordEmail(context.Context, string, string, time.Time) (bool, error) {
	return true, nil
}

func (s *NopStore) HasEmailed(context.Context, string, string) (bool, error) { return false, nil }

func (s *NopStore) Close() error { return nil }
