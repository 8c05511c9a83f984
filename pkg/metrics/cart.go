package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart mutations, store traffic and reconciliations.
type CartMetrics struct {
	events         *prometheus.CounterVec
	storeOps       *prometheus.CounterVec
	decodeFailures *prometheus.CounterVec
	reconciles     *prometheus.CounterVec
	reconcileTime  *prometheus.HistogramVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_events_total",
		Help: "Cart mutations by event name.",
	}, []string{"event"})
	storeOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_store_operations_total",
		Help: "Cart store backend operations.",
	}, []string{"backend", "op", "result"})
	decodeFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_store_decode_failures_total",
		Help: "Stored carts that could not be decoded and were read as empty.",
	}, []string{"backend"})
	reconciles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_reconciliations_total",
		Help: "Store switch reconciliations.",
	}, []string{"result"})
	reconcileTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_reconciliation_duration_seconds",
		Help:    "Duration of store switch reconciliations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	reg.MustRegister(events, storeOps, decodeFailures, reconciles, reconcileTime)
	return &CartMetrics{
		events:         events,
		storeOps:       storeOps,
		decodeFailures: decodeFailures,
		reconciles:     reconciles,
		reconcileTime:  reconcileTime,
	}
}

// IncEvent counts a cart event such as item.added.
func (c *CartMetrics) IncEvent(event string) {
	if c == nil || c.events == nil {
		return
	}
	c.events.WithLabelValues(normalizeLabel(event)).Inc()
}

// ObserveStoreOp counts a store backend operation.
func (c *CartMetrics) ObserveStoreOp(backend, op string, err error) {
	if c == nil || c.storeOps == nil {
		return
	}
	c.storeOps.WithLabelValues(normalizeLabel(backend), normalizeLabel(op), resultLabel(err)).Inc()
}

// IncDecodeFailure counts a stored cart that was discarded as unreadable.
func (c *CartMetrics) IncDecodeFailure(backend string) {
	if c == nil || c.decodeFailures == nil {
		return
	}
	c.decodeFailures.WithLabelValues(normalizeLabel(backend)).Inc()
}

// ObserveReconcile records the outcome and duration of a reconciliation.
func (c *CartMetrics) ObserveReconcile(duration time.Duration, err error) {
	if c == nil || c.reconciles == nil {
		return
	}
	result := resultLabel(err)
	c.reconciles.WithLabelValues(result).Inc()
	c.reconcileTime.WithLabelValues(result).Observe(duration.Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
