package core

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ethan-al/gsqr/state"
)

// Telemetry exports control-plane metrics. The experiment harness reads
// exact counters straight off the agent; these are for live observation
// and are served only when metrics_bind is configured.
type Telemetry struct {
	registry *prometheus.Registry
	srv      *http.Server

	ControlPackets prometheus.Counter
	ControlBytes   prometheus.Counter
	Neighbours     prometheus.Gauge
	EmbeddingKB    prometheus.Gauge
}

func (t *Telemetry) Init(s *state.State) error {
	t.registry = prometheus.NewRegistry()
	factory := promauto.With(t.registry)

	t.ControlPackets = factory.NewCounter(prometheus.CounterOpts{
		Name: "gsqr_control_packets_sent_total",
		Help: "Hello beacons broadcast successfully",
	})
	t.ControlBytes = factory.NewCounter(prometheus.CounterOpts{
		Name: "gsqr_control_bytes_sent_total",
		Help: "Control traffic bytes broadcast successfully",
	})
	t.Neighbours = factory.NewGauge(prometheus.GaugeOpts{
		Name: "gsqr_neighbours",
		Help: "Neighbours currently tracked in the discovery table",
	})
	t.EmbeddingKB = factory.NewGauge(prometheus.GaugeOpts{
		Name: "gsqr_embedding_table_kb",
		Help: "Estimated embedding table footprint in KiB",
	})

	if s.MetricsBind != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{}))
		t.srv = &http.Server{Addr: s.MetricsBind, Handler: mux}
		go func() {
			if err := t.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Log.Warn("metrics server stopped", "err", err)
			}
		}()
		s.Log.Info("serving metrics", "addr", s.MetricsBind)
	}

	s.Env.RepeatTask(t.refresh, state.TelemetryDelay)
	return nil
}

func (t *Telemetry) refresh(s *state.State) error {
	if s.Neighbours != nil {
		t.Neighbours.Set(float64(s.Neighbours.Len()))
	}
	if s.Embeddings != nil {
		t.EmbeddingKB.Set(s.Embeddings.MemoryKB())
	}
	return nil
}

func (t *Telemetry) Cleanup(s *state.State) error {
	if t.srv != nil {
		return t.srv.Close()
	}
	return nil
}
