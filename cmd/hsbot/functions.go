package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/spf13/cobra"

	// Registers the line-webhook and line-events functions.
	_ "github.com/liteapi-travel/hscode-assistant"
	"github.com/liteapi-travel/hscode-assistant/internal/config"
)

func newFunctionsCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "functions",
		Short: "Run the function entry points locally with the Functions Framework",
		Long: `Starts the Functions Framework with the registered functions:

  line-webhook  LINE webhook over HTTP, events processed before the response
  line-events   webhook bodies relayed as Pub/Sub CloudEvents`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The functions read their configuration lazily from the
			// environment, so only the port is needed here.
			cfg, err := config.LoadFile(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfgFile != "" {
				os.Setenv("CONFIG_PATH", cfgFile)
			}
			if target != "" {
				os.Setenv("FUNCTION_TARGET", target)
			}

			logger := newLogger(cfg)
			logger.Info().
				Int("port", cfg.Server.Port).
				Str("target", os.Getenv("FUNCTION_TARGET")).
				Msg("Starting Functions Framework")

			return funcframework.Start(strconv.Itoa(cfg.Server.Port))
		},
	}

	cmd.Flags().StringVar(&target, "target", "line-webhook", "function to serve (line-webhook or line-events)")
	return cmd
}
