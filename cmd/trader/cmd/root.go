package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/stocksim/config"
	"github.com/rustyeddy/stocksim/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "A-share backtesting account and order-matching simulator",
	Long: `Trader replays A-share market data through a simulated brokerage account.

It provides tools for:
  - Backtesting strategies on daily bars or tick snapshots
  - Stop-loss, stop-profit and stop-time exit policies
  - T+1 settlement, price limits and exchange fees
  - Journaling deals and daily snapshots to SQLite or CSV
  - Converting bar data between CSV and Parquet`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Close()
		}
	},
}

var (
	cfgPath  string
	envFiles []string
	logLevel string

	cfg    *config.Config
	logger *logging.Logger
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (YAML or JSON); defaults apply when empty")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before STOCKSIM_* overrides (default .env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgPath, envFiles...)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err = logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	}, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
