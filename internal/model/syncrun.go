package model

import (
	"strings"
	"time"
)

// RunStatus is the lifecycle state of a sync run.
type RunStatus string

const (
	RunRunning RunStatus = "RUNNING"
	RunSuccess RunStatus = "SUCCESS"
	RunFailed  RunStatus = "FAILED"
)

// SyncMode selects whether a run resumes from the last cursor.
type SyncMode string

const (
	ModeIncremental SyncMode = "INCREMENTAL"
	ModeFull        SyncMode = "FULL"
)

// ParseSyncMode maps "full" (any case) to ModeFull and everything else to
// ModeIncremental.
func ParseSyncMode(s string) SyncMode {
	if strings.EqualFold(strings.TrimSpace(s), "full") {
		return ModeFull
	}
	return ModeIncremental
}

// SyncRun is one ingestion run as recorded in the sync history.
type SyncRun struct {
	ID            int64
	PipelineName  string
	Mode          SyncMode
	StartTime     time.Time
	EndTime       *time.Time
	Status        RunStatus
	JobsProcessed int
	JobsInserted  int
	JobsUpdated   int
	JobsFailed    int
	PagesFailed   int
	CursorValue   string
	ErrorMessage  string
}

// NewSyncRun returns a RUNNING run.
func NewSyncRun(id int64, pipeline string, mode SyncMode, start time.Time) SyncRun {
	return SyncRun{
		ID:           id,
		PipelineName: pipeline,
		Mode:         mode,
		StartTime:    start,
		Status:       RunRunning,
	}
}

// Terminal reports whether the run has reached SUCCESS or FAILED.
func (r SyncRun) Terminal() bool {
	return r.Status == RunSuccess || r.Status == RunFailed
}

// Complete moves a RUNNING run to SUCCESS.
func (r *SyncRun) Complete(cursor string, end time.Time) error {
	if r.Status != RunRunning {
		return ErrRunFinalized
	}
	r.Status = RunSuccess
	r.CursorValue = cursor
	r.EndTime = &end
	return nil
}

// Fail moves a RUNNING run to FAILED.
func (r *SyncRun) Fail(message string, end time.Time) error {
	if r.Status != RunRunning {
		return ErrRunFinalized
	}
	r.Status = RunFailed
	r.ErrorMessage = message
	r.EndTime = &end
	return nil
}

// Duration is the wall time of a finished run, or zero while running.
func (r SyncRun) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
