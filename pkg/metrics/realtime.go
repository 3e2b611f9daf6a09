package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "forkfinderz"

// RealtimeMetrics tracks the push channel and the toasts it produces.
type RealtimeMetrics struct {
	framesReceived prometheus.Counter
	framesDropped  *prometheus.CounterVec
	reconnects     prometheus.Counter
	state          prometheus.Gauge
	toasts         *prometheus.CounterVec
}

// NewRealtimeMetrics registers the realtime metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	if reg == nil {
		return &RealtimeMetrics{}
	}
	m := &RealtimeMetrics{
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_frames_received_total",
			Help:      "STOMP MESSAGE frames received on the notification queue.",
		}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_frames_dropped_total",
			Help:      "Frames dropped before dispatch.",
		}, []string{"reason"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_reconnect_attempts_total",
			Help:      "Reconnect attempts made after a broken session.",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_connection_state",
			Help:      "0=disconnected 1=connecting 2=connected 3=reconnecting.",
		}),
		toasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_toasted_total",
			Help:      "Toasts emitted for new notifications.",
		}, []string{"type"}),
	}
	reg.MustRegister(m.framesReceived, m.framesDropped, m.reconnects, m.state, m.toasts)
	return m
}

func (m *RealtimeMetrics) IncFramesReceived() {
	if m == nil || m.framesReceived == nil {
		return
	}
	m.framesReceived.Inc()
}

// IncFramesDropped counts a frame rejected for the given reason (decode, validate).
func (m *RealtimeMetrics) IncFramesDropped(reason string) {
	if m == nil || m.framesDropped == nil {
		return
	}
	m.framesDropped.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *RealtimeMetrics) IncReconnects() {
	if m == nil || m.reconnects == nil {
		return
	}
	m.reconnects.Inc()
}

// SetState publishes the numeric connection state.
func (m *RealtimeMetrics) SetState(value float64) {
	if m == nil || m.state == nil {
		return
	}
	m.state.Set(value)
}

func (m *RealtimeMetrics) IncToasts(notificationType string) {
	if m == nil || m.toasts == nil {
		return
	}
	m.toasts.WithLabelValues(normalizeLabel(notificationType)).Inc()
}
