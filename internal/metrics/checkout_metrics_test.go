package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestMetrics(t *testing.T) (*CheckoutMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return newCheckoutMetricsWithRegisterer(reg), reg
}

func TestNewCheckoutMetrics_Fields(t *testing.T) {
	metrics, _ := newTestMetrics(t)

	if metrics.ordersCreated == nil {
		t.Error("ordersCreated counter should not be nil")
	}
	if metrics.ordersCancelled == nil {
		t.Error("ordersCancelled counter should not be nil")
	}
	if metrics.linesReturned == nil {
		t.Error("linesReturned counter should not be nil")
	}
	if metrics.insufficientStock == nil {
		t.Error("insufficientStock counter should not be nil")
	}
	if metrics.checkoutDuration == nil {
		t.Error("checkoutDuration histogram should not be nil")
	}
	if metrics.timelineEvents == nil {
		t.Error("timelineEvents counter should not be nil")
	}
	if metrics.outboxEvents == nil {
		t.Error("outboxEvents counter should not be nil")
	}
	if metrics.activeCheckouts == nil {
		t.Error("activeCheckouts gauge should not be nil")
	}
}

func TestRecordCounters(t *testing.T) {
	metrics, reg := newTestMetrics(t)

	metrics.RecordOrderCreated("delivery")
	metrics.RecordOrderCreated("delivery")
	metrics.RecordOrderCancelled()
	metrics.RecordLineReturned()
	metrics.RecordInsufficientStock()
	metrics.RecordCheckoutDuration(150 * time.Millisecond)
	metrics.RecordCheckoutStarted()
	metrics.RecordCheckoutFinished()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	want := map[string]float64{
		"storefront_orders_created_total":     2,
		"storefront_orders_cancelled_total":   1,
		"storefront_order_lines_returned_total": 1,
		"storefront_insufficient_stock_total": 1,
		"storefront_active_checkouts":         0,
	}

	got := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.Metric {
			got[family.GetName()] += metricValue(family.GetType(), metric)
		}
	}

	for name, expected := range want {
		if got[name] != expected {
			t.Errorf("metric %s = %v, want %v", name, got[name], expected)
		}
	}
}

func metricValue(kind dto.MetricType, metric *dto.Metric) float64 {
	switch kind {
	case dto.MetricType_COUNTER:
		return metric.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return metric.GetGauge().GetValue()
	default:
		return 0
	}
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newCheckoutMetricsWithRegisterer(reg)
	second := newCheckoutMetricsWithRegisterer(reg)

	if first.ordersCancelled != second.ordersCancelled {
		t.Error("expected repeated registration to reuse the same collector")
	}
}
