package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики жизненного цикла заказов.
type CheckoutMetrics struct {
	// Счётчики операций
	ordersCreated     *prometheus.CounterVec
	ordersCancelled   prometheus.Counter
	linesReturned     prometheus.Counter
	insufficientStock prometheus.Counter

	// Гистограмма времени создания заказа
	checkoutDuration prometheus.Histogram

	// Счётчики событий timeline и outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для заказов в обработке
	activeCheckouts prometheus.Gauge
}

// NewCheckoutMetrics создаёт метрики в DefaultRegisterer.
func NewCheckoutMetrics() *CheckoutMetrics {
	return newCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		ordersCreated: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Total number of orders created, grouped by mode",
		}, []string{"mode"}),
		ordersCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_cancelled_total",
			Help: "Total number of orders cancelled or returned",
		}),
		linesReturned: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_order_lines_returned_total",
			Help: "Total number of single order lines returned",
		}),
		insufficientStock: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_insufficient_stock_total",
			Help: "Total number of checkouts rejected due to insufficient stock",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_checkout_duration_seconds",
			Help:    "Duration of order creation units of work in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_timeline_events_total",
			Help: "Total number of order timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		activeCheckouts: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_active_checkouts",
			Help: "Number of checkout units of work currently executing",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *CheckoutMetrics) RecordOrderCreated(mode string) {
	m.ordersCreated.WithLabelValues(mode).Inc()
}

// RecordOrderCancelled увеличивает счётчик отмен и возвратов.
func (m *CheckoutMetrics) RecordOrderCancelled() {
	m.ordersCancelled.Inc()
}

// RecordLineReturned увеличивает счётчик возвратов отдельных позиций.
func (m *CheckoutMetrics) RecordLineReturned() {
	m.linesReturned.Inc()
}

// RecordInsufficientStock увеличивает счётчик отказов по стоку.
func (m *CheckoutMetrics) RecordInsufficientStock() {
	m.insufficientStock.Inc()
}

// RecordCheckoutDuration записывает время выполнения единицы работы чекаута.
func (m *CheckoutMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *CheckoutMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *CheckoutMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// RecordCheckoutStarted увеличивает количество активных чекаутов.
func (m *CheckoutMetrics) RecordCheckoutStarted() {
	m.activeCheckouts.Inc()
}

// RecordCheckoutFinished уменьшает количество активных чекаутов.
func (m *CheckoutMetrics) RecordCheckoutFinished() {
	m.activeCheckouts.Dec()
}
