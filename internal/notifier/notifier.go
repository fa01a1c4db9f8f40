// Package notifier reports finished sync runs to people.
package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amishk599/jobsync/internal/model"
)

// When decides which runs are reported.
type When string

const (
	OnFailure When = "failure"
	OnAlways  When = "always"
)

// ParseWhen maps a config value to When. Empty means OnFailure.
func ParseWhen(s string) (When, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(OnFailure):
		return OnFailure, nil
	case string(OnAlways):
		return OnAlways, nil
	default:
		return "", fmt.Errorf("unknown notification trigger %q (want failure or always)", s)
	}
}

func (w When) wants(run model.SyncRun) bool {
	return w == OnAlways || run.Status == model.RunFailed
}

// SendTestMessage sends a sample failed run so the integration can be
// checked end to end.
func SendTestMessage(ctx context.Context, n model.RunNotifier) error {
	start := time.Now().Add(-42 * time.Second)
	end := time.Now()
	run := model.SyncRun{
		ID:            0,
		PipelineName:  "jobsync-test",
		Mode:          model.ModeIncremental,
		StartTime:     start,
		EndTime:       &end,
		Status:        model.RunFailed,
		JobsProcessed: 120,
		JobsInserted:  17,
		JobsUpdated:   101,
		JobsFailed:    2,
		PagesFailed:   1,
		ErrorMessage:  "test notification, integration verified",
	}
	return n.NotifyRun(ctx, run)
}
