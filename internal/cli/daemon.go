package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/finmate-app/finmate/internal/daemon"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run reconciliation on a schedule with a status API",
	Long: `Run reconciliation immediately and then on a fixed interval, serving
/healthz and /v1/status over HTTP until interrupted.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().String("listen", "", "Status API listen address (default from config)")
	daemonCmd.Flags().Duration("interval", 0, "Reconciliation interval (default from config)")
}

func runDaemon(cmd *cobra.Command, _ []string) error {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reconciler, queue, err := buildPipeline(ctx, cfg, store, logger)
	if err != nil {
		return err
	}

	addr := cfg.Daemon.Listen
	if flagAddr, _ := cmd.Flags().GetString("listen"); flagAddr != "" {
		addr = flagAddr
	}
	interval, err := time.ParseDuration(cfg.Daemon.Interval)
	if err != nil {
		return fmt.Errorf("parse daemon interval: %w", err)
	}
	if flagInterval, _ := cmd.Flags().GetDuration("interval"); flagInterval > 0 {
		interval = flagInterval
	}

	svc := daemon.New(daemon.Config{Addr: addr, Interval: interval}, reconciler, logger)
	runErr := svc.Run(ctx)

	if err := drainQueue(cfg, queue); err != nil {
		logger.Error("drain dispatch queue", "error", err)
	}

	return runErr
}
