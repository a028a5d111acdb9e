package main

import (
	"fmt"
	"os"

	lsm "github.com/AmrMurad1/go-lsm"
	"github.com/AmrMurad1/go-lsm/config"
	"github.com/AmrMurad1/go-lsm/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:          "lsmctl [command] (flags)",
	Short:        "interactive shell and table inspection for the lsm store",
	SilenceUsage: true,
}

func main() {
	cobra.EnableCommandSorting = false
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "", "path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(
		&dataDir, "data-dir", "", "data directory (overrides the configuration file)")

	rootCmd.AddCommand(
		replCmd,
		inspectCmd,
		dumpCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig returns the configuration and logger selected by the global
// flags.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.LoadConfig(configPath, zap.NewNop())
		if err != nil {
			return nil, nil, err
		}
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	logger, err := logging.SetupLoggerFromConfig(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func openEngine() (*lsm.Engine, *zap.Logger, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	opts := cfg.Options()
	opts.Logger = logger
	opts.OnBackgroundError = func(err error) {
		fmt.Fprintf(os.Stderr, "background error: %v\n", err)
	}
	db, err := lsm.Open(cfg.DataDir, lsm.WithOptions(opts))
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return db, logger, nil
}
