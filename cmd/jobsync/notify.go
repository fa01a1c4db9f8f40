package main

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/notifier"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long:  "Sends a sample failed-run notification through the configured notifier.",
	RunE:  runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	defer logger.Sync()

	cfg, err := loadConfigLogged(logger)
	if err != nil {
		return err
	}

	n, err := setupNotifier(cfg, &http.Client{Timeout: cfg.HTTP.Timeout}, logger)
	if err != nil {
		logger.Error("invalid notification config", zap.Error(err))
		return errFailed
	}

	if err := notifier.SendTestMessage(context.Background(), n); err != nil {
		logger.Error("test notification failed", zap.Error(err))
		return errFailed
	}
	logger.Info("test notification sent successfully")
	return nil
}
