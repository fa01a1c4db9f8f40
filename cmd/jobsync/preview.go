package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/store"
	"github.com/amishk599/jobsync/internal/syncer"
	"github.com/amishk599/jobsync/internal/tui"
)

var previewPlain bool

var previewCmd = &cobra.Command{
	Use:   "preview PIPELINE",
	Short: "Browse what a sync would write (TUI)",
	Long: `Collects the pipeline with a spinner, canonicalizes it and opens a
split-pane browser of the result. Nothing is written. The right pane lists
jobs the store does not hold yet.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().BoolVar(&previewPlain, "plain", false, "print a table instead of the TUI")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg, err := loadConfigLogged(logger)
	if err != nil {
		return err
	}

	p, ok := cfg.Pipeline(args[0])
	if !ok {
		logger.Error("unknown pipeline", zap.String("pipeline", args[0]))
		return errFailed
	}

	interactive := !previewPlain && isatty.IsTerminal(os.Stdout.Fd())
	if interactive {
		// Log lines under the spinner or the alt screen corrupt the display.
		logger = zap.NewNop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Warn("store unavailable, every job will show as new", zap.Error(err))
		st = store.NewNopStore()
	}
	defer st.Close()

	d := newDeps(cfg, logger)
	defer d.Close()

	c, err := d.newCollector(p)
	if err != nil {
		logger.Error("building collector", zap.Error(err))
		return errFailed
	}
	engine := syncer.NewEngine(syncer.Config{BatchSize: cfg.Sync.BatchSize}, st, st, newCanonicalizer(cfg), logger)
	collect := func(ctx context.Context) (syncer.Preview, error) {
		return engine.Preview(ctx, c)
	}

	if !interactive {
		res, err := collect(ctx)
		if err != nil {
			logger.Error("preview failed", zap.Error(err))
			return errFailed
		}
		_, _ = io.WriteString(cmd.OutOrStdout(), tui.RenderJobsPlain(res))
		return nil
	}

	res, err := tui.RunLoader(ctx, p.Name, collect)
	if errors.Is(err, tui.ErrCancelled) {
		return nil
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "preview %s: %v\n", p.Name, err)
		return errFailed
	}
	if len(res.Jobs) == 0 {
		fmt.Printf("No jobs collected from %s.\n", p.Name)
		return nil
	}
	return tui.RunPreview(p.Name, res)
}
