package bridge

import (
	"sync"

	"github.com/jetkvm/chatpad-bridge/internal/chatpad"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
)

var (
	metricFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatpad_frames_total",
			Help: "Frames read from the chatpad, by kind",
		},
		[]string{"kind"},
	)
	metricSyncs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatpad_syncs_total",
			Help: "Sync commands written to the chatpad",
		},
	)
	metricEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatpad_events_total",
			Help: "Events produced by the protocol engine, by type",
		},
		[]string{"type"},
	)
	metricSessions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatpad_sessions_total",
			Help: "Sessions started against the serial device",
		},
	)
	metricTransportErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatpad_transport_errors_total",
			Help: "Sessions ended by a transport failure",
		},
	)
	metricState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chatpad_session_state",
			Help: "1 for the current session state, 0 otherwise",
		},
		[]string{"state"},
	)
	metricOutputErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatpad_output_errors_total",
			Help: "Failures typing text on the output backend",
		},
	)

	metricsRegistry     = prometheus.NewRegistry()
	metricsRegistryOnce sync.Once
)

func registerMetrics() {
	metricsRegistryOnce.Do(func() {
		metricsRegistry.MustRegister(
			metricFrames,
			metricSyncs,
			metricEvents,
			metricSessions,
			metricTransportErrors,
			metricState,
			metricOutputErrors,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			versioncollector.NewCollector("chatpad_bridge"),
		)
	})
}

func observeTick(tick chatpad.Tick) {
	if tick.Synced {
		metricSyncs.Inc()
	}
	if tick.Kind != chatpad.FrameNone {
		metricFrames.WithLabelValues(tick.Kind.String()).Inc()
	}
}

func updateStateMetric(current SessionState) {
	for _, s := range []SessionState{StateStopped, StateStarted, StateReady, StateError} {
		v := 0.0
		if s == current {
			v = 1
		}
		metricState.WithLabelValues(string(s)).Set(v)
	}
}
