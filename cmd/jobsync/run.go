package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/config"
	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/scheduler"
	"github.com/amishk599/jobsync/internal/store"
	"github.com/amishk599/jobsync/internal/tui"
)

var (
	runFull   bool
	runAll    bool
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run [pipeline...]",
	Short: "Sync pipelines once and exit",
	Long: `Runs the named pipelines once, in order. With no names on a terminal it
opens a picker. --dry-run collects and canonicalizes but writes nothing.
Exits non-zero if any run failed.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runFull, "full", false, "ignore the saved cursor and resync everything")
	runCmd.Flags().BoolVar(&runAll, "all", false, "run every enabled pipeline")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "do not write jobs or sync history")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	defer logger.Sync()

	cfg, err := loadConfigLogged(logger)
	if err != nil {
		return err
	}

	pipelines, err := selectPipelines(cfg, args, runAll)
	if err != nil {
		logger.Error("selecting pipelines", zap.Error(err))
		return errFailed
	}
	if len(pipelines) == 0 {
		return nil
	}

	mode := model.ModeIncremental
	if runFull {
		mode = model.ModeFull
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if runDryRun {
		logger.Info("dry-run mode enabled, nothing will be written")
		st = store.NewNopStore()
	} else {
		st, err = openStore(ctx, cfg)
		if err != nil {
			logger.Error("failed to open store", zap.Error(err))
			return errFailed
		}
		if cfg.Sync.AbandonAfter > 0 {
			n, err := st.AbandonStale(ctx, time.Now().Add(-cfg.Sync.AbandonAfter), scheduler.AbandonMessage)
			if err != nil {
				logger.Warn("abandoning stale runs failed", zap.Error(err))
			} else if n > 0 {
				logger.Warn("abandoned stale runs", zap.Int64("count", n))
			}
		}
	}
	defer st.Close()

	d := newDeps(cfg, logger)
	defer d.Close()

	engine, cleanup, err := setupEngine(cfg, st, !runDryRun, logger)
	if err != nil {
		logger.Error("failed to set up engine", zap.Error(err))
		return errFailed
	}
	defer cleanup()

	failed := 0
	for _, p := range pipelines {
		c, err := d.newCollector(p)
		if err != nil {
			logger.Error("building collector", zap.String("pipeline", p.Name), zap.Error(err))
			failed++
			continue
		}
		if _, err := engine.Run(ctx, p.Name, c, mode); err != nil {
			failed++
		}
		if ctx.Err() != nil {
			break
		}
	}

	if failed > 0 {
		logger.Error("sync finished with failures", zap.Int("failed", failed), zap.Int("pipelines", len(pipelines)))
		return errFailed
	}
	return nil
}

// selectPipelines resolves the pipelines a one-shot command acts on: the
// named ones, every enabled one with all, or a picker on a terminal.
func selectPipelines(cfg *config.Config, names []string, all bool) ([]config.PipelineConfig, error) {
	if all {
		return cfg.EnabledPipelines(), nil
	}

	if len(names) == 0 {
		if !isatty.IsTerminal(os.Stdout.Fd()) {
			return nil, fmt.Errorf("name at least one pipeline or pass --all")
		}
		enabled := cfg.EnabledPipelines()
		items := make([]tui.PipelineItem, len(enabled))
		for i, p := range enabled {
			items[i] = tui.PipelineItem{Name: p.Name, Collector: p.Collector}
		}
		picked, err := tui.RunPipelinePicker("Select pipelines to sync", items)
		if err != nil {
			return nil, fmt.Errorf("picker: %w", err)
		}
		names = picked
	}

	out := make([]config.PipelineConfig, 0, len(names))
	for _, name := range names {
		p, ok := cfg.Pipeline(name)
		if !ok {
			return nil, fmt.Errorf("unknown pipeline %q", name)
		}
		out = append(out, p)
	}
	return out, nil
}
