package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
	metric:
		for _, m := range fam.GetMetric() {
			for k, v := range labels {
				if !hasLabel(m, k, v) {
					continue metric
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func hasLabel(m *dto.Metric, key, value string) bool {
	for _, pair := range m.GetLabel() {
		if pair.GetName() == key && pair.GetValue() == value {
			return true
		}
	}
	return false
}

func TestSessionMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSessionMetrics(reg)

	m.ObserveStart("interview")
	m.ObserveStart("interview")
	m.ObserveFinished("")
	m.ObserveError("graceful_end")
	m.ObserveCompletion(true)

	if got := counterValue(t, reg, "prepwise_session_started_total", map[string]string{"mode": "interview"}); got != 2 {
		t.Errorf("started_total = %v, want 2", got)
	}
	if got := counterValue(t, reg, "prepwise_session_finished_total", map[string]string{"reason": "call-end"}); got != 1 {
		t.Errorf("finished_total defaulted reason = %v, want 1", got)
	}
	if got := counterValue(t, reg, "prepwise_session_completions_total", map[string]string{"with_feedback": "true"}); got != 1 {
		t.Errorf("completions_total = %v, want 1", got)
	}
}

func TestFeedbackMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFeedbackMetrics(reg)

	m.ObserveGenerated("success")
	m.ObserveRepairedField("strengths")
	m.ObserveRepairedField("strengths")
	m.ObserveScoringDuration(0.42)

	if got := counterValue(t, reg, "prepwise_feedback_repaired_fields_total", map[string]string{"field": "strengths"}); got != 2 {
		t.Errorf("repaired_fields_total = %v, want 2", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var s *SessionMetrics
	var f *FeedbackMetrics

	s.ObserveStart("interview")
	s.ObserveFinished("stopped")
	s.ObserveError("unknown")
	s.ObserveCompletion(false)
	f.ObserveGenerated("failure")
	f.ObserveRepairedField("totalScore")
	f.ObserveScoringDuration(1)
}
