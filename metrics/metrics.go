package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_transitions_total",
			Help: "Total number of registration lifecycle transitions",
		},
		[]string{"from", "to"},
	)

	CertificateRenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "certificate_render_duration_seconds",
			Help:    "Duration of certificate rendering in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"result"},
	)

	PaymentUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_proof_uploads_total",
			Help: "Total number of payment proof uploads by result",
		},
		[]string{"result"},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_failures_total",
			Help: "Total number of failed best-effort notification deliveries",
		},
		[]string{"sink"},
	)
)
