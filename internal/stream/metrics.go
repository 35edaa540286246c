package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// responsesTotal counts finished media responses by status code.
	responsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_hub_responses_total",
			Help: "Total number of media responses by library and status",
		},
		[]string{"library", "status"},
	)

	// bytesServed counts body bytes actually handed to clients
	bytesServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_hub_bytes_served_total",
			Help: "Total number of resource bytes written to clients",
		},
		[]string{"library"},
	)
)
