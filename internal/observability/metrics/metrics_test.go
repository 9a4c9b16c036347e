package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func counterWithLabel(f *dto.MetricFamily, name, value string) float64 {
	if f == nil {
		return 0
	}
	for _, m := range f.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == name && lp.GetValue() == value {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestEngineMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngineMetrics(reg)

	m.ObserveBooking("success", 0.01)
	m.ObserveBooking("success", 0.02)
	m.ObserveBooking("slot_unavailable", 0.01)
	m.ObserveToolCall("book_appointment", "ok")
	m.ObserveNotification("email", errors.New("smtp down"))
	m.ObserveAgentIterations(3)
	m.SetSessionsLive(4)
	m.AddSessionsEvicted(2)
	m.AddSessionsEvicted(0)

	families := gather(t, reg)
	if got := counterWithLabel(families["clinic_booking_bookings_total"], "outcome", "success"); got != 2 {
		t.Fatalf("expected 2 successful bookings, got %v", got)
	}
	if got := counterWithLabel(families["clinic_notify_notifications_total"], "status", "error"); got != 1 {
		t.Fatalf("expected 1 failed notification, got %v", got)
	}
	if got := families["clinic_session_live"].GetMetric()[0].GetGauge().GetValue(); got != 4 {
		t.Fatalf("expected 4 live sessions, got %v", got)
	}
	if got := families["clinic_session_evicted_total"].GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 evictions, got %v", got)
	}
	if got := families["clinic_agent_iterations"].GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
		t.Fatalf("expected 1 iteration sample, got %v", got)
	}
}

func TestEngineMetricsNilSafe(t *testing.T) {
	var m *EngineMetrics
	m.ObserveBooking("success", 0.1)
	m.ObserveToolCall("query_stats", "ok")
	m.ObserveNotification("calendar", nil)
	m.ObserveAgentIterations(1)
	m.SetSessionsLive(1)
	m.AddSessionsEvicted(1)
}
