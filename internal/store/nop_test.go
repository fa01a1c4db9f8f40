package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amishk599/jobsync/internal/model"
)

func TestNopStoreCountsEverythingAsNew(t *testing.T) {
	s := NewNopStore()
	ctx := context.Background()
	jobs := []model.CanonicalJob{{IdentityKey: "a"}, {IdentityKey: "b"}}

	for i := 0; i < 2; i++ {
		res, err := s.UpsertJobs(ctx, jobs, time.Now())
		if err != nil || res.Inserted != 2 {
			t.Fatalf("UpsertJobs = %+v, %v", res, err)
		}
	}
	if _, err := s.GetJob(ctx, "a"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetJob err = %v, want ErrNotFound", err)
	}
}

func TestNopStoreRunIDs(t *testing.T) {
	s := NewNopStore()
	ctx := context.Background()

	first, _ := s.StartRun(ctx, "p", time.Now())
	second, _ := s.StartRun(ctx, "p", time.Now())
	if first == 0 || second <= first {
		t.Errorf("run ids %d, %d", first, second)
	}

	run := model.NewSyncRun(first, "p", model.ModeFull, time.Now())
	if err := s.FinishRun(ctx, run); err == nil {
		t.Error("expected FinishRun to reject a RUNNING run")
	}
	_ = run.Complete("", time.Now())
	if err := s.FinishRun(ctx, run); err != nil {
		t.Errorf("FinishRun: %v", err)
	}
}
