package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhooksTotal,
		webhookQueueDepth,
		webhookDropsTotal,
	)
}

var (
	webhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_total",
			Help: "Inbound provider notifications by parse result (data_id/top_id/no_id/bad_body).",
		},
		[]string{"shape"},
	)

	webhookQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "webhook_queue_depth",
			Help: "Reconcile jobs currently queued behind the webhook handler.",
		},
	)

	webhookDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_drops_total",
			Help: "Notifications dropped because the reconcile queue was full.",
		},
	)
)

func IncWebhook(shape string) {
	webhooksTotal.WithLabelValues(norm(shape)).Inc()
}

func SetWebhookQueueDepth(n int) {
	webhookQueueDepth.Set(float64(n))
}

func IncWebhookDrop() {
	webhookDropsTotal.Inc()
}
