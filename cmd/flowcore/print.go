package flowcore

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonne120/flowcore/flow"
)

func printCaptureStatistics(cmd *cobra.Command, tracker *flow.Tracker) {
	stats := tracker.CaptureStatistics()
	out := cmd.OutOrStdout()

	durationSeconds := float64(stats.ElapsedUs) / 1e6
	var pps, bps float64
	if durationSeconds > 0 {
		pps = float64(stats.PacketsProcessed) / durationSeconds
		bps = float64(stats.BytesProcessed) / durationSeconds
	}

	fmt.Fprintf(out, "capture statistics:\n")
	fmt.Fprintf(out, "  packets_processed   %d\n", stats.PacketsProcessed)
	fmt.Fprintf(out, "  bytes_processed     %d\n", stats.BytesProcessed)
	fmt.Fprintf(out, "  active_flows        %d\n", stats.FlowCount)
	fmt.Fprintf(out, "  table_full_total    %d\n", stats.TableFullCount)
	fmt.Fprintf(out, "  unique_protocols    %d\n", stats.UniqueProtocols)
	fmt.Fprintf(out, "  unique_src_ips      %d\n", stats.UniqueSrcIPs)
	fmt.Fprintf(out, "  unique_dst_ips      %d\n", stats.UniqueDstIPs)
	fmt.Fprintf(out, "  duration_seconds    %.2f\n", durationSeconds)
	fmt.Fprintf(out, "  packets_per_second  %.2f\n", pps)
	fmt.Fprintf(out, "  bytes_per_second    %.2f\n", bps)
}

func printProtocolStats(cmd *cobra.Command, tracker *flow.Tracker) {
	out := cmd.OutOrStdout()
	protoStats := tracker.ProtocolStats()

	var totalPackets uint64
	for _, p := range protoStats {
		totalPackets += p.Packets
	}

	fmt.Fprintf(out, "\nprotocol stats:\n")
	fmt.Fprintf(out, "  %-10s %10s %14s %8s\n", "protocol", "packets", "bytes", "share")
	for _, p := range protoStats {
		var share float64
		if totalPackets > 0 {
			share = 100 * float64(p.Packets) / float64(totalPackets)
		}
		fmt.Fprintf(out, "  %-10s %10d %14d %7.1f%%\n", p.Protocol.String(), p.Packets, p.Bytes, share)
	}
}

func ipToText(ip uint32) string {
	return flow.FormatIPv4(ip)
}

func serviceOrDash(port uint16) string {
	if svc := flow.ServiceName(port); svc != "" {
		return svc
	}
	return "-"
}

func printTopTalkers(cmd *cobra.Command, tracker *flow.Tracker, k int) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\ntop source IPs:\n")
	for _, s := range tracker.TopSourceIPs(k) {
		fmt.Fprintf(out, "  %-16s %14d packets\n", flow.FormatIPv4(s.IP), s.Count)
	}

	fmt.Fprintf(out, "\ntop destination IPs:\n")
	for _, d := range tracker.TopDestIPs(k) {
		fmt.Fprintf(out, "  %-16s %14d packets\n", flow.FormatIPv4(d.IP), d.Count)
	}

	fmt.Fprintf(out, "\ntop ports:\n")
	for _, p := range tracker.TopPorts(k) {
		svc := flow.ServiceName(p.Port)
		if svc == "" {
			svc = "-"
		}
		fmt.Fprintf(out, "  %-6d %-10s %14d packets\n", p.Port, svc, p.Count)
	}
}
