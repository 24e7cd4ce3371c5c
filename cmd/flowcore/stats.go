package flowcore

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sonne120/flowcore/flow"
	"github.com/sonne120/flowcore/internal/replay"
)

var statsCmd = &cobra.Command{
	Use:   "stats <file.pcap|file.pcapng>",
	Short: "Replay a capture file and print capture + protocol statistics",
	Long: `stats replays a capture file through a fresh flow.Tracker and prints
the capture-wide counters (packets/bytes processed, active flows, throughput)
together with the per-protocol packet/byte breakdown — the same views
get_capture_statistics and get_protocol_stats expose to a host.`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	tracker, err := replayFile(args[0])
	if err != nil {
		return err
	}
	printCaptureStatistics(cmd, tracker)
	printProtocolStats(cmd, tracker)
	return nil
}

func replayFile(path string) (*flow.Tracker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer f.Close()

	reader, err := replay.Open(f)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	tracker := buildTracker(cfg)
	if _, _, err := reader.ReplayInto(tracker); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return tracker, nil
}
