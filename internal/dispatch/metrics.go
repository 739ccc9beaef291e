package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autofill",
		Name:      "dispatch_outcomes_total",
		Help:      "Autofill dispatches by frame 0 status.",
	}, []string{"status"})

	deliveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autofill",
		Name:      "delivery_attempts_total",
		Help:      "Messages sent to frames, retries included.",
	}, []string{"action"})
)
