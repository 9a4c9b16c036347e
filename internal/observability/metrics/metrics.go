package metrics

import "github.com/prometheus/client_golang/prometheus"

// EngineMetrics exposes counters for booking, tool dispatch, notifications
// and session memory. A nil *EngineMetrics is a valid no-op.
type EngineMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	bookingLatency     prometheus.Histogram
	toolCallsTotal     *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	agentIterations    prometheus.Histogram
	sessionsLive       prometheus.Gauge
	sessionsEvicted    prometheus.Counter
}

// NewEngineMetrics registers the collectors on reg, or the default registerer when nil.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "book_duration_seconds",
			Help:      "Latency of the locked booking step",
			Buckets:   prometheus.DefBuckets,
		}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "agent",
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool and status",
		}, []string{"tool", "status"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Side-effect deliveries by channel and status",
		}, []string{"channel", "status"}),
		agentIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "agent",
			Name:      "iterations",
			Help:      "Reasoning steps taken per prompt",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		}),
		sessionsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "session",
			Name:      "live",
			Help:      "Conversation sessions currently held in memory",
		}),
		sessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "session",
			Name:      "evicted_total",
			Help:      "Sessions removed by the idle sweep",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.bookingsTotal,
		m.bookingLatency,
		m.toolCallsTotal,
		m.notificationsTotal,
		m.agentIterations,
		m.sessionsLive,
		m.sessionsEvicted,
	)
	return m
}

func (m *EngineMetrics) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
	m.bookingLatency.Observe(seconds)
}

func (m *EngineMetrics) ObserveToolCall(tool, status string) {
	if m == nil {
		return
	}
	m.toolCallsTotal.WithLabelValues(tool, status).Inc()
}

func (m *EngineMetrics) ObserveNotification(channel string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.notificationsTotal.WithLabelValues(channel, status).Inc()
}

func (m *EngineMetrics) ObserveAgentIterations(n int) {
	if m == nil {
		return
	}
	m.agentIterations.Observe(float64(n))
}

// SetSessionsLive records the current session count.
func (m *EngineMetrics) SetSessionsLive(n int) {
	if m == nil {
		return
	}
	m.sessionsLive.Set(float64(n))
}

func (m *EngineMetrics) AddSessionsEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsEvicted.Add(float64(n))
}
