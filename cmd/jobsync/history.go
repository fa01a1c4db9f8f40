package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/tui"
)

var (
	historyPipeline string
	historyLimit    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync runs",
	Long:  "Prints the most recent sync runs from the ledger, newest first.",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyPipeline, "pipeline", "p", "", "only show runs of this pipeline")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
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

	runs, err := st.ListRuns(ctx, historyPipeline, historyLimit)
	if err != nil {
		logger.Error("listing sync runs", zap.Error(err))
		return errFailed
	}
	fmt.Print(tui.RenderHistory(runs))
	return nil
}
