package flowcore

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sonne120/flowcore/internal/telemetry"
)

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics <file.pcap|file.pcapng>",
	Short: "Replay a capture file, then serve its statistics as Prometheus metrics until interrupted",
	Long: `serve-metrics replays a capture file into a flow.Tracker, mirrors its
counters and protocol breakdown into a Prometheus registry, and serves them
over HTTP until the process receives SIGINT/SIGTERM. It demonstrates
internal/telemetry's optional observer role: the Tracker itself has no
Prometheus dependency, serve-metrics just polls the same exported getters a
host would.`,
	Args: cobra.ExactArgs(1),
	RunE: runServeMetrics,
}

func runServeMetrics(cmd *cobra.Command, args []string) error {
	tracker, err := replayFile(args[0])
	if err != nil {
		return err
	}

	metrics := telemetry.NewMetrics()
	metrics.Refresh(tracker.CaptureStatistics(), tracker.ProtocolStats())

	logger.Info("serving metrics",
		zap.String("listen", cfg.Metrics.Listen),
		zap.String("path", cfg.Metrics.Path),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return metrics.Serve(ctx, cfg.Metrics.Listen, cfg.Metrics.Path)
}
