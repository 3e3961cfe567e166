package metrics

import "github.com/prometheus/client_golang/prometheus"

// SessionMetrics exposes counters for the call-session lifecycle.
type SessionMetrics struct {
	started     *prometheus.CounterVec
	finished    *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	completions *prometheus.CounterVec
}

func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prepwise",
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Total call sessions started",
		}, []string{"mode"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prepwise",
			Subsystem: "session",
			Name:      "finished_total",
			Help:      "Total call sessions that reached the Finished state",
		}, []string{"reason"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prepwise",
			Subsystem: "session",
			Name:      "errors_total",
			Help:      "Provider errors by classified category",
		}, []string{"category"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prepwise",
			Subsystem: "session",
			Name:      "completions_total",
			Help:      "Completion signals emitted",
		}, []string{"with_feedback"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.started, m.finished, m.errorsTotal, m.completions)
	return m
}

func (m *SessionMetrics) ObserveStart(mode string) {
	if m == nil {
		return
	}
	m.started.WithLabelValues(mode).Inc()
}

func (m *SessionMetrics) ObserveFinished(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "call-end"
	}
	m.finished.WithLabelValues(reason).Inc()
}

func (m *SessionMetrics) ObserveError(category string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(category).Inc()
}

func (m *SessionMetrics) ObserveCompletion(withFeedback bool) {
	if m == nil {
		return
	}
	label := "false"
	if withFeedback {
		label = "true"
	}
	m.completions.WithLabelValues(label).Inc()
}

// FeedbackMetrics exposes counters/histograms for the feedback pipeline.
type FeedbackMetrics struct {
	generated       *prometheus.CounterVec
	repairedFields  *prometheus.CounterVec
	scoringDuration prometheus.Histogram
}

func NewFeedbackMetrics(reg prometheus.Registerer) *FeedbackMetrics {
	m := &FeedbackMetrics{
		generated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prepwise",
			Subsystem: "feedback",
			Name:      "generated_total",
			Help:      "Feedback generation attempts by outcome",
		}, []string{"status"}),
		repairedFields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prepwise",
			Subsystem: "feedback",
			Name:      "repaired_fields_total",
			Help:      "Fields substituted by the validation/repair pass",
		}, []string{"field"}),
		scoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "prepwise",
			Subsystem: "feedback",
			Name:      "scoring_duration_seconds",
			Help:      "Latency of the upstream scoring call",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.generated, m.repairedFields, m.scoringDuration)
	return m
}

func (m *FeedbackMetrics) ObserveGenerated(status string) {
	if m == nil {
		return
	}
	m.generated.WithLabelValues(status).Inc()
}

func (m *FeedbackMetrics) ObserveRepairedField(field string) {
	if m == nil {
		return
	}
	m.repairedFields.WithLabelValues(field).Inc()
}

func (m *FeedbackMetrics) ObserveScoringDuration(seconds float64) {
	if m == nil {
		return
	}
	m.scoringDuration.Observe(seconds)
}
