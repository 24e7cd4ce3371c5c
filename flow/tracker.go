package flow

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultFlowTimeoutUs is the idle timeout (5 minutes, in microseconds)
// after which CleanupExpired removes a flow, per spec.md §4.2.
const DefaultFlowTimeoutUs = 300_000_000

// Option configures a Tracker at construction time. The functional-options
// shape follows the teacher's own WithX constructors.
type Option func(*Tracker)

// WithTableSize sets the initial map capacity hint for the flow table.
func WithTableSize(n int) Option {
	return func(t *Tracker) { t.tableSize = n }
}

// WithMaxFlows bounds the number of concurrently tracked flows.
func WithMaxFlows(n int) Option {
	return func(t *Tracker) { t.maxFlows = n }
}

// WithFlowTimeout overrides DefaultFlowTimeoutUs.
func WithFlowTimeout(timeoutUs uint64) Option {
	return func(t *Tracker) { t.flowTimeoutUs = timeoutUs }
}

// WithPayloadCapture enables bounded per-direction payload capture, capped
// at maxSize bytes per direction per flow. maxSize <= 0 means
// DefaultPayloadMaxSize.
func WithPayloadCapture(maxSize int) Option {
	return func(t *Tracker) {
		if maxSize <= 0 {
			maxSize = DefaultPayloadMaxSize
		}
		t.payloadCapture = true
		t.payloadMaxSize = maxSize
	}
}

// Tracker is the package's top-level orchestrator: it owns a FlowTable and a
// StatsAggregator, parses raw frames, advances each flow's TCP state and
// application-protocol classification, and exposes the read-side API
// described in spec.md §6. A single Tracker is safe for concurrent use.
type Tracker struct {
	sessionID uuid.UUID

	table      *FlowTable
	aggregator *StatsAggregator

	parser      PacketParser
	tcpTracker  TcpStateTracker
	detector    ProtocolDetector

	tableSize      int
	maxFlows       int
	flowTimeoutUs  uint64
	payloadCapture bool
	payloadMaxSize int

	statsEnabled atomic.Bool

	packetsProcessed atomic.Uint64
	bytesProcessed   atomic.Uint64
	captureStartUs   atomic.Uint64
	lastAcceptedUs   atomic.Uint64

	// classifyMu guards the read-modify-write of a flow entry's
	// AppProtocol/AppConfidence pair (see classify).
	classifyMu sync.Mutex
}

// NewTracker constructs a Tracker. Tracker never calls a wall-clock
// function itself: capture_start_us is seeded from the timestamp of the
// first packet ProcessPacket accepts, per spec.md §3/§4.5, not supplied at
// construction time.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		sessionID:      uuid.New(),
		flowTimeoutUs:  DefaultFlowTimeoutUs,
		payloadMaxSize: DefaultPayloadMaxSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.table = NewFlowTable(t.tableSize, t.maxFlows)
	t.aggregator = NewStatsAggregator()
	t.statsEnabled.Store(true)
	return t
}

// Close releases the tracker's resources. Tracker holds no file handles or
// goroutines of its own — Close exists so callers that wrap a Tracker in a
// lifecycle interface have a symmetric teardown call, matching the pattern
// the teacher's transports follow.
func (t *Tracker) Close() error {
	return nil
}

// SessionID returns the UUID generated for this tracker at construction,
// used to tag exported records (e.g. log fields) from a single run.
func (t *Tracker) SessionID() string {
	return t.sessionID.String()
}

// SetStatsEnabled toggles whether ProcessPacket updates the StatsAggregator
// histograms. Per-flow tracking and classification continue regardless —
// this only gates the cross-flow src/dst/port histograms behind the top-N
// views; ProtocolStats is computed from the flow table and is not gated
// (spec.md §6).
func (t *Tracker) SetStatsEnabled(enabled bool) {
	t.statsEnabled.Store(enabled)
}

// ProcessPacket parses one raw Ethernet frame, updates (or creates) its
// flow's entry, advances TCP state and application-protocol classification,
// and, while stats are enabled, folds the packet into the cross-flow
// src/dst/port histograms. nowUs is
// the caller-supplied capture timestamp, in microseconds; the first accepted
// packet's nowUs seeds capture_start_us, and every accepted packet's nowUs
// updates the last-accepted timestamp CaptureStatistics derives duration
// from.
//
// The only non-nil error ProcessPacket returns is a parse failure: a
// *ParseError wrapping one of the sentinels from parser.go (match it with
// errors.Is), for a caller that wants to log or count them. Such a frame is
// skipped and counted nowhere, per spec.md §7. A packet turned away because
// the table is full returns nil.
func (t *Tracker) ProcessPacket(frame []byte, nowUs uint64) error {
	pkt, err := t.parser.Parse(frame)
	if err != nil {
		return err
	}

	t.captureStartUs.CompareAndSwap(0, nowUs)
	t.lastAcceptedUs.Store(nowUs)

	t.packetsProcessed.Add(1)
	t.bytesProcessed.Add(uint64(len(frame)))

	key := pkt.FlowKey
	entry, _ := t.table.LookupOrCreate(key, nowUs, t.payloadCapture, t.payloadMaxSize)
	if entry == nil {
		// Table full: the packet is still counted toward global totals
		// above, but there is no flow to attribute it to.
		return nil
	}
	toServer := entry.Key.IsToServer(key.SrcIP, key.SrcPort)

	payload := pkt.Payload(frame)
	byteCount := uint64(len(frame))

	// The entry is shared with Snapshot, VisitStats and CleanupExpired, which
	// read it under the table's lock, so it is updated under that lock too.
	t.table.mu.Lock()
	if toServer {
		entry.Stats.PacketsToServer++
		entry.Stats.BytesToServer += byteCount
	} else {
		entry.Stats.PacketsToClient++
		entry.Stats.BytesToClient += byteCount
	}
	entry.Stats.LastSeenUs = nowUs

	if pkt.IsTCP {
		t.tcpTracker.Observe(&entry.Stats, toServer, pkt.TCPFlags, pkt.TCPSeq, pkt.TCPAck, pkt.TCPWindow)
	}

	entry.AppendPayload(payload, toServer)
	t.classify(entry, payload, pkt.IsUDP, !toServer, entry.Key.DstPort)
	t.table.mu.Unlock()

	if t.statsEnabled.Load() {
		t.aggregator.RecordPacket(key.SrcIP, key.DstIP, key.SrcPort, key.DstPort)
	}

	return nil
}

// classify applies the detector to a single packet's payload and, if the
// result is a strictly-higher-confidence signal than the flow's current
// one, updates the flow in place. Per spec.md §4.4, nothing happens once
// confidence has already reached classifyTerminal.
func (t *Tracker) classify(entry *FlowEntry, payload []byte, isUDP, fromServer bool, dstPort uint16) {
	if entry.Stats.AppConfidence >= classifyTerminal {
		return
	}

	proto, confidence := t.detector.Detect(payload, isUDP, fromServer, dstPort)
	if confidence == 0 {
		return
	}

	t.classifyMu.Lock()
	defer t.classifyMu.Unlock()

	if confidence <= entry.Stats.AppConfidence {
		return
	}
	// Once locked (>= classifyLocked), only a strictly higher-confidence
	// signal may replace it — already guaranteed by the comparison above,
	// which requires strictly higher confidence at every level, so there is
	// no separate classifyLocked check.
	entry.Stats.AppProtocol = proto
	entry.Stats.AppConfidence = confidence
}

// CaptureStatistics returns the capture-wide counters from spec.md §6.
// PacketsProcessed, BytesProcessed and FlowCount are read from their atomic
// mirrors; UniqueProtocols is counted by a scan of the flow table under its
// lock, and the unique-IP counts take the aggregator's lock. ElapsedUs is
// last_accepted_us - capture_start_us, both tracked internally from the
// timestamps ProcessPacket has been given, and stays 0 until at least two
// packets have been accepted (a single packet has no duration).
func (t *Tracker) CaptureStatistics() CaptureStatistics {
	packetsProcessed := t.packetsProcessed.Load()
	startUs := t.captureStartUs.Load()
	lastUs := t.lastAcceptedUs.Load()

	stats := CaptureStatistics{
		PacketsProcessed: packetsProcessed,
		BytesProcessed:   t.bytesProcessed.Load(),
		FlowCount:        t.table.FlowCount(),
		TableFullCount:   t.table.TableFullCount(),
		CaptureStartUs:   startUs,
		UniqueProtocols:  uniqueProtocolCount(t.table),
		UniqueSrcIPs:     t.aggregator.UniqueSourceIPs(),
		UniqueDstIPs:     t.aggregator.UniqueDestIPs(),
	}
	if packetsProcessed >= 2 && lastUs > startUs {
		stats.ElapsedUs = lastUs - startUs
	}
	return stats
}

// ProtocolStats returns the per-protocol packet/byte breakdown, computed
// live from the current flow table, sorted by packets descending.
func (t *Tracker) ProtocolStats() []ProtocolStat {
	return computeProtocolStats(t.table)
}

// TopSourceIPs returns the top n source IPs by packet count.
func (t *Tracker) TopSourceIPs(n int) []TalkerStat {
	return t.aggregator.TopSourceIPs(n)
}

// TopDestIPs returns the top n destination IPs by packet count.
func (t *Tracker) TopDestIPs(n int) []TalkerStat {
	return t.aggregator.TopDestIPs(n)
}

// TopPorts returns the top n ports by packet count seen in either direction.
func (t *Tracker) TopPorts(n int) []PortStat {
	return t.aggregator.TopPorts(n)
}

// FlowCount returns the number of currently tracked flows.
func (t *Tracker) FlowCount() int {
	return t.table.FlowCount()
}

// Flows returns a deep-copied snapshot of every currently tracked flow.
func (t *Tracker) Flows() []FlowEntry {
	return t.table.Snapshot()
}

// CleanupExpired evicts flows idle for longer than the tracker's configured
// timeout, as of nowUs, and returns the number evicted.
func (t *Tracker) CleanupExpired(nowUs uint64) int {
	return t.table.CleanupExpired(nowUs, t.flowTimeoutUs)
}

// ClearStatistics resets the flow table and both histograms, but leaves the
// cumulative packets/bytes-processed counters untouched — mirroring
// FlowTable.Clear's contract at the tracker level (spec.md §4.2, §6).
func (t *Tracker) ClearStatistics() {
	t.table.Clear()
	t.aggregator.Clear()
}
