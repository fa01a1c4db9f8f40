package notifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/model"
)

// Ensure LogNotifier implements model.RunNotifier.
var _ model.RunNotifier = (*LogNotifier)(nil)

// LogNotifier writes finished runs to the logger. Failed runs log at error
// level.
type LogNotifier struct {
	logger *zap.Logger
	when   When
}

// NewLogNotifier returns a notifier that logs runs matching when.
func NewLogNotifier(logger *zap.Logger, when When) *LogNotifier {
	return &LogNotifier{logger: logger, when: when}
}

// NotifyRun never fails.
func (n *LogNotifier) NotifyRun(_ context.Context, run model.SyncRun) error {
	if !n.when.wants(run) {
		return nil
	}
	fields := []zap.Field{
		zap.Int64("run_id", run.ID),
		zap.String("pipeline", run.PipelineName),
		zap.String("mode", string(run.Mode)),
		zap.String("status", string(run.Status)),
		zap.Duration("duration", run.Duration()),
		zap.Int("processed", run.JobsProcessed),
		zap.Int("inserted", run.JobsInserted),
		zap.Int("updated", run.JobsUpdated),
		zap.Int("failed", run.JobsFailed),
		zap.Int("pages_failed", run.PagesFailed),
	}
	if run.Status == model.RunFailed {
		n.logger.Error("sync run failed", append(fields, zap.String("error", run.ErrorMessage))...)
		return nil
	}
	n.logger.Info("sync run finished", append(fields, zap.String("cursor", run.CursorValue))...)
	return nil
}
