package resilience

import "github.com/prometheus/client_golang/prometheus"

var (
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vendor_breaker_state",
		Help: "Current vendor breaker state: 0=closed,1=open,2=half-open",
	}, []string{"target"})
	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendor_breaker_transition_total",
		Help: "Count of vendor breaker state transitions",
	}, []string{"target", "from", "to"})
	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendor_breaker_open_total",
		Help: "Number of times a vendor breaker opened",
	}, []string{"target"})
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}

func setStateGauge(target string, s State) {
	BreakerState.WithLabelValues(target).Set(float64(s))
}

func observeTransition(target string, from, to State) {
	setStateGauge(target, to)
	BreakerTransitions.WithLabelValues(target, from.String(), to.String()).Inc()
	if to == Open {
		BreakerOpenedTotal.WithLabelValues(target).Inc()
	}
}
