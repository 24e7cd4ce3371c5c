package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsAggregator_TopSourceIPs_OrderedDescendingTieBreakAscending(t *testing.T) {
	a := NewStatsAggregator()
	a.RecordPacket(1, 100, 1, 2)
	a.RecordPacket(2, 100, 1, 2)
	a.RecordPacket(3, 100, 1, 2)
	a.RecordPacket(3, 100, 1, 2)

	top := a.TopSourceIPs(2)
	assert.Len(t, top, 2)
	assert.Equal(t, uint32(3), top[0].IP)
	assert.Equal(t, uint64(2), top[0].Count)
	assert.Equal(t, uint32(1), top[1].IP, "ties broken by ascending IP")
}

func TestStatsAggregator_TopPorts(t *testing.T) {
	a := NewStatsAggregator()
	a.RecordPacket(1, 2, 80, 9000)
	a.RecordPacket(1, 2, 443, 9001)
	a.RecordPacket(1, 2, 443, 9002)

	top := a.TopPorts(1)
	assert.Len(t, top, 1)
	assert.Equal(t, uint16(443), top[0].Port)
	assert.Equal(t, uint64(2), top[0].Count)
}

func TestStatsAggregator_RecordPacket_IgnoresPortZero(t *testing.T) {
	a := NewStatsAggregator()
	a.RecordPacket(1, 2, 0, 0) // e.g. an ICMP packet, ports unset

	assert.Empty(t, a.TopPorts(10))
}

func TestStatsAggregator_UniqueSourceDestIPs(t *testing.T) {
	a := NewStatsAggregator()
	a.RecordPacket(1, 100, 1, 2)
	a.RecordPacket(2, 100, 1, 2)
	a.RecordPacket(1, 200, 1, 2)

	assert.Equal(t, 2, a.UniqueSourceIPs())
	assert.Equal(t, 2, a.UniqueDestIPs())
}

func TestStatsAggregator_Clear(t *testing.T) {
	a := NewStatsAggregator()
	a.RecordPacket(1, 2, 3, 4)

	a.Clear()

	assert.Empty(t, a.TopSourceIPs(10))
	assert.Equal(t, 0, a.UniqueSourceIPs())
}

func tableWithFlow(t *testing.T, key FlowKey, proto AppProtocol, packetsToServer, packetsToClient uint64) *FlowTable {
	t.Helper()
	table := NewFlowTable(0, 0)
	entry, created := table.LookupOrCreate(key, 0, false, 0)
	require.True(t, created)
	entry.Stats.AppProtocol = proto
	entry.Stats.PacketsToServer = packetsToServer
	entry.Stats.PacketsToClient = packetsToClient
	entry.Stats.BytesToServer = packetsToServer * 100
	entry.Stats.BytesToClient = packetsToClient * 100
	return table
}

func TestComputeProtocolStats_SortedByPacketsDescending(t *testing.T) {
	table := NewFlowTable(0, 0)

	e1, _ := table.LookupOrCreate(FlowKey{SrcIP: 1, DstIP: 2, SrcPort: 1, DstPort: 80, Protocol: 6}, 0, false, 0)
	e1.Stats.AppProtocol = ProtoHTTP
	e1.Stats.PacketsToServer = 3
	e1.Stats.BytesToServer = 300

	e2, _ := table.LookupOrCreate(FlowKey{SrcIP: 3, DstIP: 4, SrcPort: 1, DstPort: 443, Protocol: 6}, 0, false, 0)
	e2.Stats.AppProtocol = ProtoTLS
	e2.Stats.PacketsToServer = 5
	e2.Stats.BytesToServer = 500

	stats := computeProtocolStats(table)
	require.Len(t, stats, 2)
	assert.Equal(t, ProtoTLS, stats[0].Protocol)
	assert.Equal(t, uint64(5), stats[0].Packets)
	assert.Equal(t, ProtoHTTP, stats[1].Protocol)
	assert.Equal(t, uint64(3), stats[1].Packets)
}

func TestComputeProtocolStats_ReflectsCurrentClassificationNotHistory(t *testing.T) {
	table := tableWithFlow(t, FlowKey{SrcIP: 1, DstIP: 2, SrcPort: 1, DstPort: 80, Protocol: 6}, ProtoUnknown, 0, 0)

	entry := table.Lookup(FlowKey{SrcIP: 1, DstIP: 2, SrcPort: 1, DstPort: 80, Protocol: 6})
	entry.Stats.AppProtocol = ProtoHTTP
	entry.Stats.PacketsToServer = 2

	stats := computeProtocolStats(table)
	require.Len(t, stats, 1)
	assert.Equal(t, ProtoHTTP, stats[0].Protocol)
	assert.Equal(t, uint64(2), stats[0].Packets)

	// A later reclassification is reflected immediately, with no leftover
	// entry under the old label — there is no incremental bookkeeping to
	// fall out of sync.
	entry.Stats.AppProtocol = ProtoTLS
	stats = computeProtocolStats(table)
	require.Len(t, stats, 1)
	assert.Equal(t, ProtoTLS, stats[0].Protocol)
}

func TestUniqueProtocolCount_ExcludesUnknown(t *testing.T) {
	table := NewFlowTable(0, 0)
	e1, _ := table.LookupOrCreate(FlowKey{SrcIP: 1, DstIP: 2, SrcPort: 1, DstPort: 80, Protocol: 6}, 0, false, 0)
	e1.Stats.AppProtocol = ProtoHTTP
	_, _ = table.LookupOrCreate(FlowKey{SrcIP: 3, DstIP: 4, SrcPort: 1, DstPort: 53, Protocol: 17}, 0, false, 0)

	assert.Equal(t, 1, uniqueProtocolCount(table))
}
