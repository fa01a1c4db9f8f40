package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var pipelinesCmd = &cobra.Command{
	Use:   "pipelines",
	Short: "List all configured pipelines",
	Long:  "Reads the config and prints a table of all configured pipelines.",
	RunE:  runPipelines,
}

func init() {
	rootCmd.AddCommand(pipelinesCmd)
}

func runPipelines(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return errFailed
	}

	fmt.Printf("%-25s %-15s %-20s %s\n", "Pipeline", "Collector", "Company", "Status")
	fmt.Println(strings.Repeat("─", 70))

	enabled, disabled := 0, 0
	for _, p := range cfg.Pipelines {
		status := "enabled"
		if !p.Enabled {
			status = "disabled"
			disabled++
		} else {
			enabled++
		}
		company := p.Company
		if company == "" {
			company = "-"
		}
		fmt.Printf("%-25s %-15s %-20s %s\n", p.Name, p.Collector, company, status)
	}

	fmt.Printf("\nTotal: %d pipelines (%d enabled, %d disabled)\n", len(cfg.Pipelines), enabled, disabled)
	return nil
}
