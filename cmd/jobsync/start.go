package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/config"
	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sync daemon",
	Long:  "Start the scheduler daemon; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	defer logger.Sync()

	cfg, err := loadConfigLogged(logger)
	if err != nil {
		return err
	}
	enabled := cfg.EnabledPipelines()
	logger.Info("config loaded",
		zap.Int("pipelines", len(enabled)),
		zap.String("driver", cfg.Database.Driver),
		zap.String("timezone", cfg.Schedule.Timezone),
		zap.Int("schedule_entries", len(cfg.Schedule.Entries)),
	)
	if len(enabled) == 0 {
		logger.Error("no pipelines to sync")
		return errFailed
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", zap.Error(err))
		return errFailed
	}
	defer st.Close()

	d := newDeps(cfg, logger)
	defer d.Close()

	engine, cleanup, err := setupEngine(cfg, st, true, logger)
	if err != nil {
		logger.Error("failed to set up engine", zap.Error(err))
		return errFailed
	}
	defer cleanup()

	var pipelines []scheduler.Pipeline
	for _, p := range enabled {
		c, err := d.newCollector(p)
		if err != nil {
			logger.Warn("skipping pipeline", zap.String("pipeline", p.Name), zap.Error(err))
			continue
		}
		pipelines = append(pipelines, scheduler.Pipeline{Name: p.Name, Collector: c})
		logger.Info("registered pipeline", zap.String("pipeline", p.Name), zap.String("collector", p.Collector))
	}

	sched, err := scheduler.New(schedulerConfig(cfg), pipelines, engine, st, st, logger)
	if err != nil {
		logger.Error("invalid schedule", zap.Error(err))
		return errFailed
	}
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", zap.Error(err))
		return errFailed
	}

	logger.Info("goodbye")
	return nil
}

func schedulerConfig(cfg *config.Config) scheduler.Config {
	entries := make([]scheduler.Entry, 0, len(cfg.Schedule.Entries))
	for _, e := range cfg.Schedule.Entries {
		entries = append(entries, scheduler.Entry{
			Spec:      e.Cron,
			Mode:      model.ParseSyncMode(e.Mode),
			Pipelines: e.Pipelines,
		})
	}
	return scheduler.Config{
		Location:        cfg.Schedule.Location,
		Entries:         entries,
		RunOnStart:      cfg.Schedule.RunOnStart,
		AbandonAfter:    cfg.Sync.AbandonAfter,
		DeactivateAfter: cfg.Sync.DeactivateAfter,
		Pause:           cfg.HTTP.RateLimit.MinDelay,
	}
}
