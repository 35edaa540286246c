package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// handleHits counts Acquire calls served by an already open handle.
	handleHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_hub_handle_cache_hits_total",
			Help: "Total number of Acquire calls served from an open handle",
		},
		[]string{"library"},
	)

	// handleMisses counts Acquire calls that had to open the file.
	handleMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_hub_handle_cache_misses_total",
			Help: "Total number of Acquire calls that opened the underlying file",
		},
		[]string{"library"},
	)

	// acquireFailures tracks failed Acquire calls by reason
	acquireFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_hub_handle_acquire_failures_total",
			Help: "Total number of failed Acquire calls",
		},
		[]string{"library", "reason"}, // "invalid_path", "not_found", "io"
	)

	// openHandles tracks handles currently held by the cache
	openHandles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_hub_open_handles",
			Help: "Number of resource handles currently open",
		},
		[]string{"library"},
	)
)
