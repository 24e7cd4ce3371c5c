package telemetry

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sonne120/flowcore/flow"
)

// Metrics mirrors a Tracker's counters into an owned Prometheus registry.
// It is instantiated per capture session rather than held in package-level
// globals, so multiple Trackers in one process never collide on metric
// names or share state.
type Metrics struct {
	registry *prometheus.Registry

	// PacketsProcessed, BytesProcessed, and TableFullTotal are gauges rather
	// than counters: Tracker already maintains them as monotonic atomics, so
	// Refresh only ever needs to Set the latest snapshot, not re-derive a
	// delta to Add.
	PacketsProcessed prometheus.Gauge
	BytesProcessed   prometheus.Gauge
	FlowCount        prometheus.Gauge
	TableFullTotal   prometheus.Gauge
	UniqueProtocols  prometheus.Gauge
	UniqueSrcIPs     prometheus.Gauge
	UniqueDstIPs     prometheus.Gauge
	ProtocolPackets  *prometheus.GaugeVec
	ProtocolBytes    *prometheus.GaugeVec
}

// NewMetrics builds a Metrics instance and registers its collectors on a
// fresh registry, namespaced under "flowcore".
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PacketsProcessed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowcore",
			Name:      "packets_processed_total",
			Help:      "Total packets successfully parsed, including those turned away by a full flow table.",
		}),
		BytesProcessed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowcore",
			Name:      "bytes_processed_total",
			Help:      "Total bytes successfully parsed, including those turned away by a full flow table.",
		}),
		FlowCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowcore",
			Name:      "flow_count",
			Help:      "Current number of live entries in the flow table.",
		}),
		TableFullTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowcore",
			Name:      "table_full_total",
			Help:      "Total packets for a new flow rejected because the table was at capacity.",
		}),
		UniqueProtocols: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowcore",
			Name:      "unique_protocols",
			Help:      "Number of distinct application protocols currently classified across live flows.",
		}),
		UniqueSrcIPs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowcore",
			Name:      "unique_source_ips",
			Help:      "Number of distinct source IPs seen so far.",
		}),
		UniqueDstIPs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowcore",
			Name:      "unique_dest_ips",
			Help:      "Number of distinct destination IPs seen so far.",
		}),
		ProtocolPackets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flowcore",
			Name:      "protocol_packets",
			Help:      "Cumulative packets seen under each application protocol, across live flows.",
		}, []string{"protocol"}),
		ProtocolBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flowcore",
			Name:      "protocol_bytes",
			Help:      "Cumulative bytes seen under each application protocol, across live flows.",
		}, []string{"protocol"}),
	}

	m.registry.MustRegister(
		m.PacketsProcessed,
		m.BytesProcessed,
		m.FlowCount,
		m.TableFullTotal,
		m.UniqueProtocols,
		m.UniqueSrcIPs,
		m.UniqueDstIPs,
		m.ProtocolPackets,
		m.ProtocolBytes,
	)
	return m
}

// Refresh copies a Tracker's current counters and protocol breakdown into
// the registry's gauges. Every value is Set to the latest snapshot, since
// Tracker's underlying totals are themselves cumulative; the per-protocol
// gauges are reset first so protocols no longer present disappear.
func (m *Metrics) Refresh(stats flow.CaptureStatistics, protocols []flow.ProtocolStat) {
	m.PacketsProcessed.Set(float64(stats.PacketsProcessed))
	m.BytesProcessed.Set(float64(stats.BytesProcessed))
	m.FlowCount.Set(float64(stats.FlowCount))
	m.TableFullTotal.Set(float64(stats.TableFullCount))
	m.UniqueProtocols.Set(float64(stats.UniqueProtocols))
	m.UniqueSrcIPs.Set(float64(stats.UniqueSrcIPs))
	m.UniqueDstIPs.Set(float64(stats.UniqueDstIPs))

	m.ProtocolPackets.Reset()
	m.ProtocolBytes.Reset()
	for _, p := range protocols {
		m.ProtocolPackets.WithLabelValues(p.Protocol.String()).Set(float64(p.Packets))
		m.ProtocolBytes.WithLabelValues(p.Protocol.String()).Set(float64(p.Bytes))
	}
}

// Handler returns the http.Handler that serves this registry's metrics in
// the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs a minimal HTTP server exposing the registry at path until ctx
// is canceled.
func (m *Metrics) Serve(ctx context.Context, listen, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	srv := &http.Server{Addr: listen, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
