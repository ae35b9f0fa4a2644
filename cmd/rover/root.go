package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/internal/log"
)

var (
	// Global flags
	cfgFile  string
	port     string
	debug    bool
	logLevel string

	// cfg is loaded in PersistentPreRunE, with flags applied on top.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "rover",
	Short: "Rover control and telemetry service",
	Long: `rover drives a small wheeled rover in manual or autonomous mode and
publishes its events over HTTP and websocket.

Configuration comes from an optional YAML file, then environment
variables, then the flags below.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cmd.Flags().Changed("port") {
			cfg.Server.Port = port
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if debug {
			cfg.LogLevel = "debug"
		}
		log.Init(cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&port, "port", config.DefaultPort, "HTTP port")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging and request logs")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}
