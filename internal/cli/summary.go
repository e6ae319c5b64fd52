package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finmate-app/finmate/pkg/reconcile"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Send weekly financial summaries to opted-in users",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	summarizer := reconcile.NewSummarizer(store, initMailer(cfg), logger)
	sent, err := summarizer.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Weekly summary complete: %d summaries sent\n", sent)
	return nil
}
