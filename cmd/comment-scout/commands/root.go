package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"comment-scout/internal/config"
	"comment-scout/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "comment-scout",
	Short:         "comment-scout finds purchase-intent comments under short videos.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to the YAML config file.")
}

// ExecuteContext runs the CLI and returns the process exit code. A failing
// command is logged once here, after its own teardown has run.
func ExecuteContext(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	defer logging.CloseLogging()

	if err == nil {
		return 0
	}
	logging.GetGlobalLogger().Error("Command failed", map[string]interface{}{
		"command": commandName(),
		"error":   err.Error(),
	})
	return 1
}

func commandName() string {
	cmd, _, err := rootCmd.Find(os.Args[1:])
	if err != nil || cmd == nil {
		return rootCmd.Name()
	}
	return cmd.Name()
}

// bootstrap loads config, applies overrides and starts logging
func bootstrap(override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	if err := logging.InitializeLogging(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, nil
}
