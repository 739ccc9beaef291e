package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var connectedFrames = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "autofill",
	Name:      "relay_connected_frames",
	Help:      "Frames currently attached to the relay.",
})
