package flow

// DefaultPayloadMaxSize is the per-direction payload capture cap (65536
// bytes, per spec.md §3) applied when a Tracker has payload capture enabled.
const DefaultPayloadMaxSize = 65536

// FlowStats holds the per-flow counters and TCP/classification snapshot
// described in spec.md §3. It is embedded in FlowEntry rather than
// referenced by pointer so that a snapshot copy of a FlowEntry is a true,
// independent copy.
type FlowStats struct {
	FirstSeenUs uint64
	LastSeenUs  uint64

	PacketsToServer uint64
	PacketsToClient uint64
	BytesToServer   uint64
	BytesToClient   uint64

	TCPState        TcpState
	TCPSeqClient    uint32
	TCPSeqServer    uint32
	TCPAckClient    uint32
	TCPAckServer    uint32
	TCPWindowClient uint16
	TCPWindowServer uint16

	HasSyn    bool
	HasSynAck bool
	HasFin    bool
	HasRst    bool

	AppProtocol   AppProtocol
	AppConfidence int
}

// TotalPackets returns the combined packet count in both directions.
func (s FlowStats) TotalPackets() uint64 {
	return s.PacketsToServer + s.PacketsToClient
}

// TotalBytes returns the combined byte count in both directions.
func (s FlowStats) TotalBytes() uint64 {
	return s.BytesToServer + s.BytesToClient
}

// FlowEntry is a single row of the flow table: the key that identifies the
// conversation, its accumulated stats, and (optionally) bounded payload
// captures. FlowEntry is owned exclusively by FlowTable; callers only ever
// see copies (via FlowTable.Snapshot/Tracker.Flows) or a reference scoped to a single
// call made while the table's lock is held.
type FlowEntry struct {
	Key    FlowKey
	Stats  FlowStats
	Active bool

	PayloadCaptureEnabled bool
	PayloadMaxSize        int
	PayloadToServer       []byte
	PayloadToClient       []byte
}

func newFlowEntry(key FlowKey, ts uint64, payloadCapture bool, payloadMax int) *FlowEntry {
	return &FlowEntry{
		Key: key,
		Stats: FlowStats{
			FirstSeenUs: ts,
			LastSeenUs:  ts,
		},
		Active:                true,
		PayloadCaptureEnabled: payloadCapture,
		PayloadMaxSize:        payloadMax,
	}
}

// AppendPayload copies up to len(data) bytes of a packet's payload into the
// flow's bounded, per-direction capture buffer. It is a no-op when payload
// capture is disabled, the buffer is already at its cap, or data is empty.
func (e *FlowEntry) AppendPayload(data []byte, toServer bool) {
	if !e.PayloadCaptureEnabled || len(data) == 0 {
		return
	}
	buf := &e.PayloadToServer
	if !toServer {
		buf = &e.PayloadToClient
	}
	remaining := e.PayloadMaxSize - len(*buf)
	if remaining <= 0 {
		return
	}
	toCopy := len(data)
	if toCopy > remaining {
		toCopy = remaining
	}
	*buf = append(*buf, data[:toCopy]...)
}

// Clone returns a deep, independent copy of the entry — used by
// FlowTable.Snapshot so that readers never alias the table's live entries.
func (e *FlowEntry) Clone() FlowEntry {
	cp := *e
	if e.PayloadToServer != nil {
		cp.PayloadToServer = append([]byte(nil), e.PayloadToServer...)
	}
	if e.PayloadToClient != nil {
		cp.PayloadToClient = append([]byte(nil), e.PayloadToClient...)
	}
	return cp
}
