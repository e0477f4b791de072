package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsRevenueCents,
		reconcileOutcomes,
		gatewayLatencyMs,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payments by terminal status (approved/rejected/cancelled).",
		},
		[]string{"status"},
	)

	paymentsRevenueCents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_revenue_cents_total",
			Help: "Total value of approved PIX charges, in centavos.",
		},
	)

	reconcileOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_outcomes_total",
			Help: "Reconciliation attempts by outcome (activated/already_applied/denied/pending/unmapped/locked/error).",
		},
		[]string{"outcome"},
	)

	gatewayLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_latency_ms",
			Help:    "Provider call latency distribution in milliseconds.",
			Buckets: []float64{25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 25000},
		},
		[]string{"op", "success"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(amountCents int64) {
	paymentsRevenueCents.Add(float64(amountCents))
}

func IncReconcileOutcome(outcome string) {
	reconcileOutcomes.WithLabelValues(norm(outcome)).Inc()
}

func ObserveGatewayLatency(op string, success bool, ms float64) {
	label := "false"
	if success {
		label = "true"
	}
	gatewayLatencyMs.WithLabelValues(norm(op), label).Observe(ms)
}
