package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestCheckoutMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCheckoutMetrics(reg)
	metrics.ObserveDuration(PathDirect, 250*time.Millisecond)
	metrics.IncOrder(PathDirect)
	metrics.IncOrder(PathWebhook)
	metrics.IncFailure(PathDirect, "INSUFFICIENT_STOCK")
	metrics.IncWebhookEvent("duplicate")
	metrics.IncNotification("sent")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "orders_materialized_total", "path", PathDirect); err != nil {
		t.Fatalf("fetch orders: %v", err)
	} else if got != 1 {
		t.Fatalf("expected orders=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "checkout_failures_total", "code", "INSUFFICIENT_STOCK"); err != nil {
		t.Fatalf("fetch failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failures=1, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "checkout_duration_seconds", "path", PathDirect); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.webhookEvents.WithLabelValues("duplicate")); got != 1 {
		t.Fatalf("expected duplicate=1, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.notifications.WithLabelValues("sent")); got != 1 {
		t.Fatalf("expected sent=1, got %f", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *CheckoutMetrics
	metrics.IncOrder(PathDirect)
	metrics.IncFailure(PathDirect, "")
	metrics.IncWebhookEvent("processed")
	metrics.IncNotification("failed")
	metrics.ObserveDuration(PathWebhook, time.Second)

	unregistered := NewCheckoutMetrics(nil)
	unregistered.IncOrder(PathDirect)
}

func TestEmptyLabelsNormalize(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCheckoutMetrics(reg)
	metrics.IncWebhookEvent("")
	if got := testutil.ToFloat64(metrics.webhookEvents.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected unknown=1, got %f", got)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("label %s=%s not found for %s", label, value, name)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("label %s=%s not found for %s", label, value, name)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
