// Package syncer drives an ingestion run end to end: collect, canonicalize,
// deduplicate per batch, upsert, and record the outcome in the sync history.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/canonical"
	"github.com/amishk599/jobsync/internal/dedup"
	"github.com/amishk599/jobsync/internal/model"
)

// DefaultBatchSize bounds how many jobs go into one upsert transaction.
const DefaultBatchSize = 500

// Config is the engine's explicit configuration.
type Config struct {
	BatchSize int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithPublisher announces each batch's newly inserted jobs through p.
func WithPublisher(p model.JobPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithNotifier reports every finished run through n.
func WithNotifier(n model.RunNotifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine runs sync pipelines against one store and ledger.
type Engine struct {
	cfg       Config
	jobs      model.JobStore
	ledger    model.RunLedger
	canon     *canonical.Canonicalizer
	validate  *validator.Validate
	publisher model.JobPublisher
	notifier  model.RunNotifier
	now       func() time.Time
	logger    *zap.Logger
}

// NewEngine wires an engine with its collaborators.
func NewEngine(
	cfg Config,
	jobs model.JobStore,
	ledger model.RunLedger,
	canon *canonical.Canonicalizer,
	logger *zap.Logger,
	opts ...Option,
) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if canon == nil {
		canon = canonical.New(nil)
	}
	e := &Engine{
		cfg:      cfg,
		jobs:     jobs,
		ledger:   ledger,
		canon:    canon,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one sync of pipeline from c. The returned SyncRun is always
// terminal; a FAILED run also returns a non-nil error. When the ledger row
// cannot be created the run has ID 0 and nothing is recorded.
func (e *Engine) Run(ctx context.Context, pipeline string, c model.Collector, mode model.SyncMode) (model.SyncRun, error) {
	start := e.now()
	id, err := e.ledger.StartRun(ctx, pipeline, start)
	if err != nil {
		runErr := model.NewRunError(pipeline, model.StageStart, fmt.Errorf("opening sync run: %w", err))
		run := model.NewSyncRun(0, pipeline, mode, start)
		_ = run.Fail(runErr.Error(), e.now())
		e.logger.Error("sync could not start", zap.String("pipeline", pipeline), zap.Error(err))
		return run, runErr
	}

	run := model.NewSyncRun(id, pipeline, mode, start)
	log := e.logger.With(
		zap.String("pipeline", pipeline),
		zap.Int64("run_id", id),
		zap.String("mode", string(mode)),
		zap.String("collector", c.Name()),
	)
	log.Info("sync started")

	cursor, runErr := e.execute(ctx, &run, c, log)
	return e.finish(ctx, run, cursor, runErr, log)
}

func (e *Engine) execute(ctx context.Context, run *model.SyncRun, c model.Collector, log *zap.Logger) (string, error) {
	var prev string
	if run.Mode != model.ModeFull {
		cur, err := e.ledger.LastCursor(ctx, run.PipelineName)
		if err != nil {
			return "", model.NewRunError(run.PipelineName, model.StageCursor, fmt.Errorf("reading last cursor: %w", err))
		}
		prev = cur
		log.Debug("resuming from cursor", zap.String("cursor", prev))
	}

	batch := dedup.NewBatch(e.cfg.BatchSize)
	var newest time.Time

	for raw, err := range c.Collect(ctx, prev) {
		if err != nil {
			var pageErr *model.PageError
			if errors.As(err, &pageErr) {
				run.PagesFailed++
				log.Warn("page failed, continuing", zap.Error(err))
				continue
			}
			return prev, model.NewRunError(run.PipelineName, model.StageCollect, err)
		}

		job := e.canon.Canonicalize(raw)
		run.JobsProcessed++
		if job.PostedAt != nil && job.PostedAt.After(newest) {
			newest = *job.PostedAt
		}

		batch.Add(job)
		if batch.Len() >= e.cfg.BatchSize {
			if err := e.flush(ctx, run, batch, log); err != nil {
				return prev, err
			}
		}
	}
	if err := e.flush(ctx, run, batch, log); err != nil {
		return prev, err
	}

	// Postings lost to a failed page or record sit behind the newest date
	// seen; advancing would make the next incremental run skip them.
	if run.PagesFailed > 0 || run.JobsFailed > 0 {
		if !newest.IsZero() {
			log.Warn("keeping previous cursor after partial failures",
				zap.Int("pages_failed", run.PagesFailed),
				zap.Int("jobs_failed", run.JobsFailed),
			)
		}
		return prev, nil
	}
	return nextCursor(prev, newest), nil
}

// nextCursor keeps prev unless newest is later. Cursors never move backwards.
func nextCursor(prev string, newest time.Time) string {
	if newest.IsZero() {
		return prev
	}
	if prev != "" {
		if p, err := time.Parse(time.RFC3339, prev); err == nil && !newest.After(p) {
			return prev
		}
	}
	return newest.UTC().Format(time.RFC3339)
}

// flush validates and upserts the batch, then empties it. Only batch-level
// storage failures are returned; bad records are counted and skipped.
// Canonicalization already degrades malformed fields, so validation only
// catches what slipped past it.
func (e *Engine) flush(ctx context.Context, run *model.SyncRun, batch *dedup.Batch, log *zap.Logger) error {
	if batch.Len() == 0 {
		return nil
	}
	defer batch.Reset()

	if err := ctx.Err(); err != nil {
		return model.NewRunError(run.PipelineName, model.StageUpsert, fmt.Errorf("stopped before batch: %w", err))
	}

	jobs := batch.Jobs()
	valid := jobs[:0]
	for _, j := range jobs {
		if err := e.validate.Struct(j); err != nil {
			run.JobsFailed++
			log.Warn("invalid job skipped", zap.String("identity_key", j.IdentityKey), zap.Error(err))
			continue
		}
		valid = append(valid, j)
	}
	if len(valid) == 0 {
		return nil
	}

	res, err := e.jobs.UpsertJobs(ctx, valid, e.now())
	if err != nil {
		return model.NewRunError(run.PipelineName, model.StageUpsert, fmt.Errorf("upserting batch of %d: %w", len(valid), err))
	}

	run.JobsInserted += res.Inserted
	run.JobsUpdated += res.Updated
	run.JobsFailed += len(res.Failures)
	for _, f := range res.Failures {
		log.Warn("job upsert failed", zap.String("identity_key", f.IdentityKey), zap.Error(f.Err))
	}
	log.Info("batch applied",
		zap.Int("size", len(valid)),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("failed", len(res.Failures)),
	)

	if e.publisher != nil && len(res.InsertedJobs) > 0 {
		if err := e.publisher.PublishJobs(ctx, res.InsertedJobs); err != nil {
			log.Warn("publishing new jobs failed", zap.Int("jobs", len(res.InsertedJobs)), zap.Error(err))
		}
	}
	return nil
}

func (e *Engine) finish(ctx context.Context, run model.SyncRun, cursor string, runErr error, log *zap.Logger) (model.SyncRun, error) {
	// The terminal write must land even if the run was cancelled.
	wctx := context.WithoutCancel(ctx)

	if runErr == nil {
		done := run
		_ = done.Complete(cursor, e.now())
		if err := e.ledger.FinishRun(wctx, done); err != nil {
			runErr = model.NewRunError(run.PipelineName, model.StageFinish, fmt.Errorf("recording success: %w", err))
		} else {
			run = done
			log.Info("sync complete",
				zap.Int("processed", run.JobsProcessed),
				zap.Int("inserted", run.JobsInserted),
				zap.Int("updated", run.JobsUpdated),
				zap.Int("failed", run.JobsFailed),
				zap.Int("pages_failed", run.PagesFailed),
				zap.String("cursor", run.CursorValue),
				zap.Duration("took", run.Duration()),
			)
		}
	}

	if runErr != nil {
		failed := run
		_ = failed.Fail(runErr.Error(), e.now())
		if err := e.ledger.FinishRun(wctx, failed); err != nil {
			log.Error("recording failed run", zap.Error(err))
		}
		run = failed
		log.Error("sync failed",
			zap.Int("processed", run.JobsProcessed),
			zap.Int("inserted", run.JobsInserted),
			zap.Error(runErr),
		)
		var re *model.RunError
		if errors.As(runErr, &re) {
			log.Debug("failure stack", zap.ByteString("stack", re.Stack))
		}
	}

	if e.notifier != nil {
		if err := e.notifier.NotifyRun(wctx, run); err != nil {
			log.Warn("run notification failed", zap.Error(err))
		}
	}
	return run, runErr
}
