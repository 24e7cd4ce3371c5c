package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonne120/flowcore/flow"
)

func TestMetrics_RefreshAndScrape(t *testing.T) {
	m := NewMetrics()
	m.Refresh(flow.CaptureStatistics{
		PacketsProcessed: 42,
		BytesProcessed:   4096,
		FlowCount:        3,
		TableFullCount:   1,
		UniqueProtocols:  1,
		UniqueSrcIPs:     2,
		UniqueDstIPs:     2,
	}, []flow.ProtocolStat{
		{Protocol: flow.ProtoHTTP, Packets: 2, Bytes: 2048},
	})

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "flowcore_flow_count 3"))
	assert.True(t, strings.Contains(body, "flowcore_unique_protocols 1"))
	assert.True(t, strings.Contains(body, `flowcore_protocol_packets{protocol="HTTP"} 2`))
}
