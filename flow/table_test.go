package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowTable_LookupOrCreate_CreatesOnce(t *testing.T) {
	tbl := NewFlowTable(16, 16)
	key := FlowKey{SrcIP: 1, DstIP: 2, SrcPort: 1000, DstPort: 80, Protocol: protoTCP}

	e1, created1 := tbl.LookupOrCreate(key, 100, false, 0)
	require.True(t, created1)
	require.NotNil(t, e1)

	e2, created2 := tbl.LookupOrCreate(key, 200, false, 0)
	assert.False(t, created2)
	assert.Same(t, e1, e2)
	assert.Equal(t, 1, tbl.FlowCount())
}

func TestFlowTable_LookupOrCreate_FindsReverseDirection(t *testing.T) {
	tbl := NewFlowTable(16, 16)
	fwd := FlowKey{SrcIP: 1, DstIP: 2, SrcPort: 1000, DstPort: 80, Protocol: protoTCP}
	rev := FlowKey{SrcIP: 2, DstIP: 1, SrcPort: 80, DstPort: 1000, Protocol: protoTCP}

	e1, created1 := tbl.LookupOrCreate(fwd, 100, false, 0)
	require.True(t, created1)

	e2, created2 := tbl.LookupOrCreate(rev, 200, false, 0)
	assert.False(t, created2, "a reply in the opposite direction must land on the same flow")
	assert.Same(t, e1, e2)
	assert.Equal(t, fwd, e1.Key, "the entry's Key stays oriented to the first packet seen")
}

func TestFlowTable_LookupOrCreate_RespectsMaxFlows(t *testing.T) {
	tbl := NewFlowTable(16, 1)

	_, created1 := tbl.LookupOrCreate(FlowKey{SrcIP: 1, DstPort: 1}, 100, false, 0)
	require.True(t, created1)

	e, created2 := tbl.LookupOrCreate(FlowKey{SrcIP: 2, DstPort: 2}, 100, false, 0)
	assert.False(t, created2)
	assert.Nil(t, e)
	assert.Equal(t, uint64(1), tbl.TableFullCount())
	assert.Equal(t, 1, tbl.FlowCount())
}

func TestFlowTable_CleanupExpired(t *testing.T) {
	tbl := NewFlowTable(16, 16)
	tbl.LookupOrCreate(FlowKey{SrcIP: 1}, 1000, false, 0)
	tbl.LookupOrCreate(FlowKey{SrcIP: 2}, 5000, false, 0)

	removed := tbl.CleanupExpired(6000, 2000)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, tbl.FlowCount())
	assert.Nil(t, tbl.Lookup(FlowKey{SrcIP: 1}))
	assert.NotNil(t, tbl.Lookup(FlowKey{SrcIP: 2}))
}

func TestFlowTable_CleanupExpired_GuardsClockRegression(t *testing.T) {
	tbl := NewFlowTable(16, 16)
	tbl.LookupOrCreate(FlowKey{SrcIP: 1}, 10000, false, 0)

	removed := tbl.CleanupExpired(500, 100)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 1, tbl.FlowCount())
}

func TestFlowTable_Clear_PreservesCumulativeCounters(t *testing.T) {
	tbl := NewFlowTable(16, 16)
	tbl.LookupOrCreate(FlowKey{SrcIP: 1}, 100, false, 0)
	tbl.LookupOrCreate(FlowKey{SrcIP: 1}, 100, false, 0)

	tbl.Clear()

	assert.Equal(t, 0, tbl.FlowCount())
	assert.Equal(t, uint64(1), tbl.TotalInsertions())
	assert.Equal(t, uint64(2), tbl.TotalLookups())
}

func TestFlowTable_Snapshot_IsIndependentCopy(t *testing.T) {
	tbl := NewFlowTable(16, 16)
	e, _ := tbl.LookupOrCreate(FlowKey{SrcIP: 1}, 100, false, 0)
	e.Stats.PacketsToServer = 5

	snap := tbl.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, uint64(5), snap[0].Stats.PacketsToServer)

	e.Stats.PacketsToServer = 99
	assert.Equal(t, uint64(5), snap[0].Stats.PacketsToServer, "snapshot must not alias the live entry")
}
