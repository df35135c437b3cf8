package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CompareRequestsTotal counts basket comparisons by outcome.
	CompareRequestsTotal *prometheus.CounterVec
	// CompareSavings records the savings of successful comparisons in minor units.
	CompareSavings prometheus.Histogram
	// PriceRefreshTotal counts vendor quote refresh outcomes.
	PriceRefreshTotal *prometheus.CounterVec
	// InventoryExpiringItems reports the expiring items found by the last scan.
	InventoryExpiringItems prometheus.Gauge
	// OrdersPlacedTotal counts placed orders by fulfilment mode.
	OrdersPlacedTotal *prometheus.CounterVec
	// JobsProcessedTotal counts background task outcomes.
	JobsProcessedTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CompareRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compare_requests_total",
			Help:      "Count of basket price comparisons by result.",
		}, []string{"result"})
		CompareSavings = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compare_savings_minor",
			Help:      "Savings of the optimal split over the most expensive single vendor, in minor units.",
			Buckets:   []float64{0, 500, 1000, 2500, 5000, 10000, 25000, 50000, 100000},
		})
		PriceRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_refresh_total",
			Help:      "Count of vendor quote refresh attempts by outcome.",
		}, []string{"vendor", "result"})
		InventoryExpiringItems = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inventory_expiring_items",
			Help:      "Number of pantry items expiring within the warning window at the last scan.",
		})
		OrdersPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Count of placed orders by fulfilment mode.",
		}, []string{"mode"})
		JobsProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Count of background task executions by type and result.",
		}, []string{"type", "result"})

		registerOrReuse(reg, &CompareRequestsTotal)
		registerOrReuse(reg, &CompareSavings)
		registerOrReuse(reg, &PriceRefreshTotal)
		registerOrReuse(reg, &InventoryExpiringItems)
		registerOrReuse(reg, &OrdersPlacedTotal)
		registerOrReuse(reg, &JobsProcessedTotal)
	})
}

// ObserveCompare records a comparison outcome. Savings are only observed on success.
func ObserveCompare(result string, savings int64) {
	if CompareRequestsTotal != nil {
		CompareRequestsTotal.WithLabelValues(result).Inc()
	}
	if result == "ok" && CompareSavings != nil {
		CompareSavings.Observe(float64(savings))
	}
}

// ObservePriceRefresh records the outcome of refreshing one vendor quote.
func ObservePriceRefresh(vendor, result string) {
	if PriceRefreshTotal != nil {
		PriceRefreshTotal.WithLabelValues(vendor, result).Inc()
	}
}

// SetExpiringItems publishes the count found by an inventory scan.
func SetExpiringItems(n int) {
	if InventoryExpiringItems != nil {
		InventoryExpiringItems.Set(float64(n))
	}
}

// ObserveOrderPlaced counts a placed order.
func ObserveOrderPlaced(mode string) {
	if OrdersPlacedTotal != nil {
		OrdersPlacedTotal.WithLabelValues(mode).Inc()
	}
}

// ObserveJob counts a background task execution.
func ObserveJob(taskType, result string) {
	if JobsProcessedTotal != nil {
		JobsProcessedTotal.WithLabelValues(taskType, result).Inc()
	}
}
