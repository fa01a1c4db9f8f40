package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var deactivateOlderThan time.Duration

var deactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Mark jobs not seen recently as inactive",
	Long:  "Marks every active job whose last refresh is older than --older-than as inactive. Jobs are never deleted.",
	RunE:  runDeactivate,
}

func init() {
	deactivateCmd.Flags().DurationVar(&deactivateOlderThan, "older-than", 0, "staleness window, e.g. 720h")
	_ = deactivateCmd.MarkFlagRequired("older-than")
	rootCmd.AddCommand(deactivateCmd)
}

func runDeactivate(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	defer logger.Sync()

	if deactivateOlderThan <= 0 {
		logger.Error("--older-than must be positive")
		return errFailed
	}
	cfg, err := loadConfigLogged(logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", zap.Error(err))
		return errFailed
	}
	defer st.Close()

	before := time.Now().Add(-deactivateOlderThan)
	n, err := st.DeactivateStale(ctx, before)
	if err != nil {
		logger.Error("deactivating stale jobs", zap.Error(err))
		return errFailed
	}
	logger.Info("deactivated stale jobs", zap.Int64("jobs", n), zap.Time("before", before))
	return nil
}
