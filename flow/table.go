package flow

import (
	"sync"
	"sync/atomic"
)

// Default sizing constants, carried over from the original sniffer's
// FlowTable (spec.md §4.2 leaves exact defaults to the implementer; these
// match the values the teacher's native layer used for its own table).
const (
	DefaultTableSize = 65536
	DefaultMaxFlows  = 100000
)

// FlowTable is a bounded, concurrent map from FlowKey to *FlowEntry. It
// implements the four invariants from spec.md §4.2: flow_count tracks
// |entries| exactly, insertion fails rather than evicts once max_flows is
// reached, there is never more than one entry per key, and removal happens
// only through CleanupExpired or Clear.
//
// A single mutex guards both the map and the cumulative counters; flowCount
// is additionally mirrored into an atomic so a caller polling FlowCount
// from another goroutine never has to take the lock.
type FlowTable struct {
	mu    sync.Mutex
	flows map[FlowKey]*FlowEntry

	maxFlows int

	flowCount      atomic.Int64
	totalLookups   atomic.Uint64
	totalInsertions atomic.Uint64
	tableFullCount atomic.Uint64
}

// NewFlowTable constructs an empty table. tableSize is a capacity hint for
// the underlying map (spec.md §4.2's "O(1) expected" complexity assumes a
// reasonably pre-sized map); maxFlows bounds the number of live entries.
func NewFlowTable(tableSize, maxFlows int) *FlowTable {
	if tableSize <= 0 {
		tableSize = DefaultTableSize
	}
	if maxFlows <= 0 {
		maxFlows = DefaultMaxFlows
	}
	return &FlowTable{
		flows:    make(map[FlowKey]*FlowEntry, tableSize),
		maxFlows: maxFlows,
	}
}

// canonicalKey maps both directions of a conversation to the same table
// slot. FlowKey itself stays "oriented at first-sight" — spec.md §3 wants
// FlowEntry.Key to reflect whichever side sent the first packet — but the
// table has to find that same entry again when traffic comes back the other
// way, so lookups are keyed on this undirected form instead of the raw key.
func canonicalKey(k FlowKey) FlowKey {
	if k.SrcIP < k.DstIP || (k.SrcIP == k.DstIP && k.SrcPort <= k.DstPort) {
		return k
	}
	return FlowKey{SrcIP: k.DstIP, DstIP: k.SrcIP, SrcPort: k.DstPort, DstPort: k.SrcPort, Protocol: k.Protocol}
}

// LookupOrCreate returns the existing entry for key's conversation (in
// either direction), or creates one — keyed by key as the flow's oriented,
// first-sight identity — seeded with first_seen_us = last_seen_us = ts if
// the table has room. The second return value reports whether a new entry
// was created. When the table is full, it returns (nil, false) and bumps
// the table-full counter — the packet that triggered the call is still
// counted by the caller toward the global packets/bytes totals, per
// spec.md §7.
func (t *FlowTable) LookupOrCreate(key FlowKey, ts uint64, payloadCapture bool, payloadMax int) (*FlowEntry, bool) {
	ck := canonicalKey(key)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalLookups.Add(1)

	if e, ok := t.flows[ck]; ok {
		return e, false
	}

	if len(t.flows) >= t.maxFlows {
		t.tableFullCount.Add(1)
		return nil, false
	}

	e := newFlowEntry(key, ts, payloadCapture, payloadMax)
	t.flows[ck] = e
	t.totalInsertions.Add(1)
	t.flowCount.Add(1)
	return e, true
}

// Lookup returns the existing entry for key's conversation, in either
// direction, without creating one.
func (t *FlowTable) Lookup(key FlowKey) *FlowEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalLookups.Add(1)
	return t.flows[canonicalKey(key)]
}

// CleanupExpired removes every entry whose last_seen_us is more than
// timeoutUs behind now, and returns the number removed. An entry is
// retained rather than removed if now < last_seen_us (a clock regression on
// the caller's part) — spec.md §4.2's "underflow guard".
func (t *FlowTable) CleanupExpired(now, timeoutUs uint64) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, e := range t.flows {
		if now < e.Stats.LastSeenUs {
			continue
		}
		if now-e.Stats.LastSeenUs > timeoutUs {
			delete(t.flows, key)
			removed++
		}
	}
	t.flowCount.Add(int64(-removed))
	return removed
}

// Clear removes all entries and resets flow_count, but leaves the
// cumulative lookup/insertion/table-full counters untouched (spec.md §4.2).
func (t *FlowTable) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flows = make(map[FlowKey]*FlowEntry, len(t.flows))
	t.flowCount.Store(0)
}

// Snapshot returns a deep copy of every entry currently in the table, taken
// under the table's lock, so a caller can read/iterate it without observing
// concurrent mutation and without holding the lock itself.
func (t *FlowTable) Snapshot() []FlowEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]FlowEntry, 0, len(t.flows))
	for _, e := range t.flows {
		out = append(out, e.Clone())
	}
	return out
}

// FlowCount returns the current number of live entries via the lock-free
// atomic mirror (spec.md §5's "observation points").
func (t *FlowTable) FlowCount() int {
	return int(t.flowCount.Load())
}

// VisitStats calls fn once per live entry's FlowStats, under the table's
// lock. Unlike Snapshot, it never clones payload buffers, so callers that
// only need the fixed-width counters (protocol/unique-IP aggregation) avoid
// an allocation per flow.
func (t *FlowTable) VisitStats(fn func(FlowStats)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.flows {
		fn(e.Stats)
	}
}

// MaxFlows returns the configured capacity.
func (t *FlowTable) MaxFlows() int {
	return t.maxFlows
}

// TotalLookups returns the cumulative number of Lookup/LookupOrCreate calls.
func (t *FlowTable) TotalLookups() uint64 {
	return t.totalLookups.Load()
}

// TotalInsertions returns the cumulative number of successful insertions.
func (t *FlowTable) TotalInsertions() uint64 {
	return t.totalInsertions.Load()
}

// TableFullCount returns the cumulative number of LookupOrCreate calls that
// failed because the table was at capacity.
func (t *FlowTable) TableFullCount() uint64 {
	return t.tableFullCount.Load()
}
