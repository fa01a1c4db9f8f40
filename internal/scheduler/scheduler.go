// Package scheduler runs sync pipelines on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/model"
)

// DefaultTimezone is the zone cron expressions are evaluated in.
const DefaultTimezone = "Asia/Kolkata"

// AbandonMessage is recorded on RUNNING rows failed by AbandonStale.
const AbandonMessage = "abandoned: process exited before the run finished"

// Runner executes one sync run. *syncer.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, pipeline string, c model.Collector, mode model.SyncMode) (model.SyncRun, error)
}

// Pipeline is a named collector the scheduler can run.
type Pipeline struct {
	Name      string
	Collector model.Collector
}

// Entry fires Pipelines (all of them when empty) in Mode whenever Spec
// matches. Spec is a standard five-field cron expression or a descriptor
// such as "@daily".
type Entry struct {
	Spec      string
	Mode      model.SyncMode
	Pipelines []string
}

// DefaultEntries is a nightly full sync plus an afternoon incremental one.
func DefaultEntries() []Entry {
	return []Entry{
		{Spec: "0 3 * * *", Mode: model.ModeFull},
		{Spec: "0 15 * * *", Mode: model.ModeIncremental},
	}
}

// Config controls the scheduler loop.
type Config struct {
	Location   *time.Location
	Entries    []Entry
	RunOnStart bool
	// AbandonAfter fails RUNNING ledger rows older than this at startup.
	AbandonAfter time.Duration
	// DeactivateAfter, when positive, marks jobs not refreshed within this
	// window inactive after every cycle.
	DeactivateAfter time.Duration
	// Pause separates consecutive pipelines within a cycle.
	Pause time.Duration
}

type scheduledEntry struct {
	Entry
	schedule cron.Schedule
}

// Scheduler owns the main loop: waits for the next cron fire and runs the
// due pipelines sequentially.
type Scheduler struct {
	cfg       Config
	entries   []scheduledEntry
	pipelines []Pipeline
	runner    Runner
	jobs      model.JobStore
	ledger    model.RunLedger
	now       func() time.Time
	logger    *zap.Logger
}

// New parses every entry and checks that the pipelines it names exist.
func New(cfg Config, pipelines []Pipeline, runner Runner, jobs model.JobStore, ledger model.RunLedger, logger *zap.Logger) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if len(cfg.Entries) == 0 {
		cfg.Entries = DefaultEntries()
	}

	known := make(map[string]bool, len(pipelines))
	for _, p := range pipelines {
		known[p.Name] = true
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	entries := make([]scheduledEntry, 0, len(cfg.Entries))
	for i, e := range cfg.Entries {
		sched, err := parser.Parse(e.Spec)
		if err != nil {
			return nil, fmt.Errorf("schedule entry %d: parsing %q: %w", i, e.Spec, err)
		}
		for _, name := range e.Pipelines {
			if !known[name] {
				return nil, fmt.Errorf("schedule entry %d: unknown pipeline %q", i, name)
			}
		}
		if e.Mode == "" {
			e.Mode = model.ModeIncremental
		}
		entries = append(entries, scheduledEntry{Entry: e, schedule: sched})
	}

	return &Scheduler{
		cfg:       cfg,
		entries:   entries,
		pipelines: pipelines,
		runner:    runner,
		jobs:      jobs,
		ledger:    ledger,
		now:       time.Now,
		logger:    logger,
	}, nil
}

// Run starts the scheduling loop. It returns nil when ctx is cancelled
// (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler",
		zap.String("timezone", s.cfg.Location.String()),
		zap.Int("entries", len(s.entries)),
		zap.Int("pipelines", len(s.pipelines)),
	)

	s.abandonStale(ctx)

	if s.cfg.RunOnStart {
		s.RunCycle(ctx, model.ModeIncremental, nil)
	}

	for {
		next, due := s.nextFire(s.now())
		if len(due) == 0 {
			s.logger.Warn("no upcoming schedule, idling until shutdown")
			<-ctx.Done()
			s.logger.Info("shutting down scheduler")
			return nil
		}
		s.logger.Info("next sync scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("shutting down scheduler")
			return nil
		case <-timer.C:
		}

		for _, e := range due {
			if ctx.Err() != nil {
				break
			}
			s.RunCycle(ctx, e.Mode, e.Pipelines)
		}
	}
}

// nextFire returns the earliest fire time after t and every entry due then.
func (s *Scheduler) nextFire(t time.Time) (time.Time, []scheduledEntry) {
	t = t.In(s.cfg.Location)
	var next time.Time
	var due []scheduledEntry
	for _, e := range s.entries {
		at := e.schedule.Next(t)
		if at.IsZero() {
			continue
		}
		switch {
		case next.IsZero() || at.Before(next):
			next = at
			due = []scheduledEntry{e}
		case at.Equal(next):
			due = append(due, e)
		}
	}
	return next, due
}

// RunCycle runs the named pipelines (all when names is empty) one after
// another. A failed pipeline is logged and the cycle continues.
func (s *Scheduler) RunCycle(ctx context.Context, mode model.SyncMode, names []string) []model.SyncRun {
	selected := s.pick(names)
	s.logger.Info("sync cycle started", zap.String("mode", string(mode)), zap.Int("pipelines", len(selected)))

	var runs []model.SyncRun
	for i, p := range selected {
		if ctx.Err() != nil {
			break
		}

		run, err := s.runner.Run(ctx, p.Name, p.Collector, mode)
		runs = append(runs, run)
		if err != nil {
			s.logger.Error("sync failed",
				zap.String("pipeline", p.Name),
				zap.Error(err),
			)
		}

		// Small pause between pipelines, except after the last one.
		if i < len(selected)-1 && s.cfg.Pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.Pause):
			}
		}
	}

	if s.cfg.DeactivateAfter > 0 && ctx.Err() == nil {
		s.deactivateStale(ctx, runs)
	}
	return runs
}

// deactivateStale flips unrefreshed jobs inactive. It does nothing unless
// every run in the cycle succeeded, since a failed run refreshed nothing.
func (s *Scheduler) deactivateStale(ctx context.Context, runs []model.SyncRun) {
	if len(runs) == 0 {
		return
	}
	for _, run := range runs {
		if run.Status != model.RunSuccess {
			s.logger.Warn("skipping stale job deactivation after failed run",
				zap.String("pipeline", run.PipelineName))
			return
		}
	}
	n, err := s.jobs.DeactivateStale(ctx, s.now().Add(-s.cfg.DeactivateAfter))
	if err != nil {
		s.logger.Error("deactivating stale jobs failed", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("deactivated stale jobs", zap.Int64("count", n))
	}
}

func (s *Scheduler) pick(names []string) []Pipeline {
	if len(names) == 0 {
		return s.pipelines
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Pipeline
	for _, p := range s.pipelines {
		if want[p.Name] {
			out = append(out, p)
		}
	}
	return out
}

func (s *Scheduler) abandonStale(ctx context.Context) {
	if s.cfg.AbandonAfter <= 0 {
		return
	}
	n, err := s.ledger.AbandonStale(ctx, s.now().Add(-s.cfg.AbandonAfter), AbandonMessage)
	if err != nil {
		s.logger.Error("abandoning stale runs failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Warn("abandoned stale runs", zap.Int64("count", n))
	}
}
