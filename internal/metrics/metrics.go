package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postpilot_jobs_total",
			Help: "Publishing jobs by outcome and provider",
		},
		[]string{"outcome", "provider"}, // success|retried|failed , instagram|facebook|...
	)

	WebhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postpilot_webhook_deliveries_total",
			Help: "Webhook delivery attempts by outcome",
		},
		[]string{"outcome", "event"}, // delivered|failed , post.published|post.failed
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postpilot_events_published_total",
			Help: "Domain events published on the in-process bus",
		},
		[]string{"event"},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		JobsTotal,
		WebhookDeliveriesTotal,
		EventsPublishedTotal,
	)
}
