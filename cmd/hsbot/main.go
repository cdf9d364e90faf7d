// Command hsbot runs the HS code assistant.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/liteapi-travel/hscode-assistant/internal/config"
	"github.com/liteapi-travel/hscode-assistant/internal/logging"
)

const serviceName = "hscode-assistant"

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "hsbot",
	Short: "LINE assistant that looks up Thai customs HS codes",
	Long: `hsbot answers LINE chat messages with HS code matches from the tariff
catalog, an AI explanation and any user supplied corrections.

Configuration comes from --config (or CONFIG_PATH), a .env file and the
environment.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional.
		_ = godotenv.Load()
		if cfgFile == "" {
			cfgFile = os.Getenv("CONFIG_PATH")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: CONFIG_PATH or env vars only)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newFunctionsCmd())
	rootCmd.AddCommand(newSearchCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	return logging.New(logging.Config{
		Level:       level,
		Format:      cfg.Log.Format,
		ServiceName: serviceName,
	})
}
