// Package flowcore implements the flowcore CLI's commands using cobra.
package flowcore

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sonne120/flowcore/internal/config"
	"github.com/sonne120/flowcore/internal/telemetry"
)

var (
	// Global flags
	configFile string
	keepAlive  bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "flowcore",
	Short: "flowcore - passive flow-tracking traffic analyzer",
	Long: `flowcore consumes captured link-layer frames and maintains a live,
in-memory picture of the conversations crossing an observed interface:
byte/packet counts per flow, TCP connection lifecycle, application-protocol
classification, and aggregate statistics (top talkers, port usage,
per-protocol share, throughput).

This binary is a demonstration host around the flow package: it replays a
capture file through a flow.Tracker the way a live packet-capture loop
would, and prints the same statistics the library exposes to any host.`,
	Version:           "0.1.0",
	PersistentPreRunE: loadConfigAndLogger,
}

// Execute adds all child commands to the root command and runs it. It is
// called by main.main and only needs to run once.
func Execute() error {
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (YAML)")
	rootCmd.PersistentFlags().BoolVar(&keepAlive, "keep-alive", false, "accepted by replay, which only logs a notice for it; the process still exits when replay finishes")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(serveMetricsCmd)
}

func loadConfigAndLogger(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return fmt.Errorf("flowcore: %w", err)
	}
	logger, err = telemetry.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("flowcore: %w", err)
	}
	return nil
}
