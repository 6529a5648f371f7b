package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestLifecycleMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLifecycleMetrics(reg)
	m.ObserveArchiveRun("ok")
	m.ObserveRecords("archive", "clients", 3)
	m.ObserveErasure("ok")
	m.ObserveBreachFinding("Critical")
	m.ObserveSweepDuration("archive", 0.5)
}

func TestWebhookMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)
	m.ObserveInbound("twilio", "ok")
	m.ObserveInbound("stripe", "rejected")
}

func TestMetricsNilSafe(t *testing.T) {
	var lm *LifecycleMetrics
	lm.ObserveArchiveRun("ok")
	lm.ObserveRecords("archive", "clients", 1)
	lm.ObserveErasure("ok")
	lm.ObserveBreachFinding("High")
	lm.ObserveSweepDuration("archive", 0.1)

	var wm *WebhookMetrics
	wm.ObserveInbound("twilio", "ok")
}
