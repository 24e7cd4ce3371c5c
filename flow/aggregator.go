package flow

import (
	"sort"
	"sync"
)

// ProtocolStat is one row of ProtocolStats' output: how many packets and
// bytes, across all live flows, have been classified as a given application
// protocol.
type ProtocolStat struct {
	Protocol AppProtocol
	Packets  uint64
	Bytes    uint64
}

// TalkerStat is one row of TopSourceIPs/TopDestIPs: an IPv4 address (in the
// same network-order uint32 representation used throughout the package) and
// the number of packets seen to/from it.
type TalkerStat struct {
	IP    uint32
	Count uint64
}

// PortStat is one row of TopPorts: a port number and the number of packets
// seen using it, in either direction.
type PortStat struct {
	Port  uint16
	Count uint64
}

// CaptureStatistics is the snapshot returned by Tracker.CaptureStatistics —
// the capture-wide counters from spec.md §6. The packet/byte/flow counts come
// from Tracker's atomic mirrors; the unique-protocol and unique-IP counts are
// computed under the flow table's and the aggregator's locks.
type CaptureStatistics struct {
	PacketsProcessed uint64
	BytesProcessed   uint64
	FlowCount        int
	TableFullCount   uint64
	CaptureStartUs   uint64
	ElapsedUs        uint64
	UniqueProtocols  int
	UniqueSrcIPs     int
	UniqueDstIPs     int
}

// StatsAggregator maintains the cross-flow histograms spec.md §4.6 asks for:
// src_ip -> count, dst_ip -> count, and port -> count, each a plain packet
// occurrence count (not a byte total — byte totals per talker aren't part
// of the model). It is guarded by its own mutex, independent of FlowTable's
// — callers that need both always lock FlowTable first (see
// Tracker.ProcessPacket) to avoid a lock-ordering deadlock.
type StatsAggregator struct {
	mu sync.Mutex

	srcCounts  map[uint32]uint64
	dstCounts  map[uint32]uint64
	portCounts map[uint16]uint64
}

// NewStatsAggregator constructs an empty aggregator.
func NewStatsAggregator() *StatsAggregator {
	return &StatsAggregator{
		srcCounts:  make(map[uint32]uint64),
		dstCounts:  make(map[uint32]uint64),
		portCounts: make(map[uint16]uint64),
	}
}

// RecordPacket folds one packet's source/destination/port occurrence into
// the count histograms. Tracker calls it once for each packet it attributes
// to a flow while stats are enabled, regardless of protocol classification;
// packets turned away by a full table are not recorded. Ports with value 0
// (non-TCP/UDP traffic, see
// flow/parser.go) are not recorded, per spec.md §4.6.
func (a *StatsAggregator) RecordPacket(srcIP, dstIP uint32, srcPort, dstPort uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.srcCounts[srcIP]++
	a.dstCounts[dstIP]++
	if srcPort != 0 {
		a.portCounts[srcPort]++
	}
	if dstPort != 0 {
		a.portCounts[dstPort]++
	}
}

// UniqueSourceIPs returns the number of distinct source IPs seen so far.
func (a *StatsAggregator) UniqueSourceIPs() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.srcCounts)
}

// UniqueDestIPs returns the number of distinct destination IPs seen so far.
func (a *StatsAggregator) UniqueDestIPs() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.dstCounts)
}

// TopSourceIPs returns up to n source IPs ranked by packet count,
// descending, ties broken by ascending IP so output is deterministic.
func (a *StatsAggregator) TopSourceIPs(n int) []TalkerStat {
	a.mu.Lock()
	defer a.mu.Unlock()
	return topTalkers(a.srcCounts, n)
}

// TopDestIPs returns up to n destination IPs ranked the same way as
// TopSourceIPs.
func (a *StatsAggregator) TopDestIPs(n int) []TalkerStat {
	a.mu.Lock()
	defer a.mu.Unlock()
	return topTalkers(a.dstCounts, n)
}

// TopPorts returns up to n ports ranked by packet count seen on that port
// in either direction, descending, ties broken by ascending port.
func (a *StatsAggregator) TopPorts(n int) []PortStat {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]PortStat, 0, len(a.portCounts))
	for port, count := range a.portCounts {
		out = append(out, PortStat{Port: port, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Port < out[j].Port
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Clear resets every histogram to empty.
func (a *StatsAggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.srcCounts = make(map[uint32]uint64)
	a.dstCounts = make(map[uint32]uint64)
	a.portCounts = make(map[uint16]uint64)
}

func topTalkers(byCount map[uint32]uint64, n int) []TalkerStat {
	out := make([]TalkerStat, 0, len(byCount))
	for ip, count := range byCount {
		out = append(out, TalkerStat{IP: ip, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].IP < out[j].IP
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// computeProtocolStats aggregates per-protocol packet/byte totals across a
// live scan of the flow table, the way the original sniffer's
// Sniffer_GetProtocolStats re-scans every flow on each call rather than
// maintaining incremental per-protocol counters — so a flow's totals are
// always attributed to its *current* classification, even after a later
// packet reclassifies it. Sorted by packets descending, per spec.md §4.6.
func computeProtocolStats(table *FlowTable) []ProtocolStat {
	totals := make(map[AppProtocol]*ProtocolStat)
	table.VisitStats(func(s FlowStats) {
		ps := totals[s.AppProtocol]
		if ps == nil {
			ps = &ProtocolStat{Protocol: s.AppProtocol}
			totals[s.AppProtocol] = ps
		}
		ps.Packets += s.TotalPackets()
		ps.Bytes += s.TotalBytes()
	})

	out := make([]ProtocolStat, 0, len(totals))
	for _, ps := range totals {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Packets != out[j].Packets {
			return out[i].Packets > out[j].Packets
		}
		return out[i].Protocol < out[j].Protocol
	})
	return out
}

// uniqueProtocolCount counts the distinct non-ProtoUnknown classifications
// currently held by live flows, mirroring the original's uniqueProtocols
// count in Sniffer_GetCaptureStatistics.
func uniqueProtocolCount(table *FlowTable) int {
	seen := make(map[AppProtocol]bool)
	table.VisitStats(func(s FlowStats) {
		if s.AppProtocol != ProtoUnknown {
			seen[s.AppProtocol] = true
		}
	})
	return len(seen)
}
