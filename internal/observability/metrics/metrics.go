package metrics

import "github.com/prometheus/client_golang/prometheus"

// LifecycleMetrics exposes counters/histograms for the HIPAA lifecycle flows.
type LifecycleMetrics struct {
	archiveRunsTotal *prometheus.CounterVec
	recordsTotal     *prometheus.CounterVec
	erasuresTotal    *prometheus.CounterVec
	breachFindings   *prometheus.CounterVec
	sweepDuration    *prometheus.HistogramVec
}

// NewLifecycleMetrics registers the lifecycle metric family.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	m := &LifecycleMetrics{
		archiveRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homecare",
			Subsystem: "lifecycle",
			Name:      "archive_runs_total",
			Help:      "Retention sweep runs by outcome",
		}, []string{"status"}),
		recordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homecare",
			Subsystem: "lifecycle",
			Name:      "records_processed_total",
			Help:      "Records touched by lifecycle flows",
		}, []string{"flow", "entity"}),
		erasuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homecare",
			Subsystem: "lifecycle",
			Name:      "erasures_total",
			Help:      "Data-subject erasure requests by outcome",
		}, []string{"status"}),
		breachFindings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homecare",
			Subsystem: "security",
			Name:      "breach_findings_total",
			Help:      "Breach scan findings by severity",
		}, []string{"severity"}),
		sweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "homecare",
			Subsystem: "lifecycle",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of lifecycle sweeps",
			Buckets:   prometheus.DefBuckets,
		}, []string{"flow"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.archiveRunsTotal, m.recordsTotal, m.erasuresTotal, m.breachFindings, m.sweepDuration)
	return m
}

// ObserveArchiveRun counts one retention sweep.
func (m *LifecycleMetrics) ObserveArchiveRun(status string) {
	if m == nil {
		return
	}
	m.archiveRunsTotal.WithLabelValues(status).Inc()
}

// ObserveRecords counts records touched by a lifecycle flow.
func (m *LifecycleMetrics) ObserveRecords(flow, entity string, n float64) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsTotal.WithLabelValues(flow, entity).Add(n)
}

// ObserveErasure counts one erasure request.
func (m *LifecycleMetrics) ObserveErasure(status string) {
	if m == nil {
		return
	}
	m.erasuresTotal.WithLabelValues(status).Inc()
}

// ObserveBreachFinding counts one breach scan finding.
func (m *LifecycleMetrics) ObserveBreachFinding(severity string) {
	if m == nil {
		return
	}
	m.breachFindings.WithLabelValues(severity).Inc()
}

// ObserveSweepDuration records how long a lifecycle flow took.
func (m *LifecycleMetrics) ObserveSweepDuration(flow string, seconds float64) {
	if m == nil {
		return
	}
	m.sweepDuration.WithLabelValues(flow).Observe(seconds)
}

// WebhookMetrics exposes counters for the Twilio and Stripe webhooks.
type WebhookMetrics struct {
	inboundTotal *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metric family.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homecare",
			Subsystem: "webhooks",
			Name:      "inbound_total",
			Help:      "Inbound webhook requests by provider and outcome",
		}, []string{"provider", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal)
	return m
}

// ObserveInbound counts one inbound webhook.
func (m *WebhookMetrics) ObserveInbound(provider, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(provider, status).Inc()
}
