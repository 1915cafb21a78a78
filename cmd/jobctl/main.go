// Command jobctl applies the schema, inspects job definitions and runs, and triggers jobs.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cuongbtq/trade-insights/internal/config"
	"github.com/cuongbtq/trade-insights/shared/logger"
)

const defaultConfigPath = "configs/dashboard-service/config.yaml"

// settings resolves flags first, then JOBCTL_* environment variables
var settings = viper.New()

var rootCmd = &cobra.Command{
	Use:   "jobctl",
	Short: "Operate the trade insights job pipeline",
	Long: `jobctl operates the trade insights job pipeline against the configured database.

Examples:
  jobctl migrate                         # Apply the database schema
  jobctl jobs                            # List job definitions
  jobctl runs --job trade_exim --limit 5 # Show recent runs of a job
  jobctl trigger trade_exim -p years=3   # Queue a manual run`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "Path to configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")

	settings.SetEnvPrefix("JOBCTL")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	_ = settings.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newJobsCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newTriggerCmd())
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration file named by --config
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(settings.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger writes to stderr so command output stays parseable
func newLogger(cfg *config.Config) (*logger.Logger, error) {
	level := cfg.Logging.Level
	if override := settings.GetString("log-level"); override != "" {
		level = override
	}
	return logger.New(&logger.Config{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.Kitchen,
	})
}
