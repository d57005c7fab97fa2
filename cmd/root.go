package cmd

import (
	"brz/config"
	"brz/logger"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "brz",
	Short:   "Class registration and certificate service",
	Long:    `Brewzone class registration service: intake, review, certificate issuance and public verification.`,
	Version: version,
	// Running without a subcommand starts the server.
	RunE: runServe,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and the structured logger every command needs.
func bootstrap() (*config.Config, logger.Logger) {
	cfg := config.LoadConfig()
	return cfg, logger.NewStructured(cfg.LogLevel, cfg.LogFormat)
}
