package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/finmate-app/finmate/internal/config"
	"github.com/finmate-app/finmate/pkg/notify"
	"github.com/finmate-app/finmate/pkg/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "finmate",
	Short: "FinMate - Personal finance budgets, alerts, and summaries",
	Long: `FinMate tracks budgets against your transaction ledger. It reconciles
monthly spend on a schedule, raises threshold alerts exactly once per budget,
level, and month, and delivers notifications per user preference.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.finmate/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStorage creates a storage backend from config.
func initStorage(cfg *config.Config) (storage.Storage, error) {
	return storage.NewSQLite(cfg.Storage.Path)
}

// initMailer creates the mail-gateway client, or nil when email is disabled.
func initMailer(cfg *config.Config) notify.Mailer {
	if !cfg.Mail.Enabled || cfg.Mail.URL == "" {
		return nil
	}
	return notify.NewGatewayMailer(cfg.Mail.URL, cfg.Mail.From, cfg.Mail.Secret)
}
