// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InboundMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_inbound_messages_total",
			Help: "Total number of inbound messages accepted for processing",
		},
		[]string{"type"},
	)

	DedupRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_dedup_rejections_total",
			Help: "Total number of inbound messages rejected as duplicates",
		},
		[]string{"kind"},
	)

	ClassifierFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_classifier_fallbacks_total",
			Help: "Total number of classifier calls that fell back to the small-talk sentinel",
		},
	)

	OutboundSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_outbound_sends_total",
			Help: "Total number of outbound sends by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	RoutingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "bot_routing_duration_seconds",
			Help: "Duration of routing one inbound message in seconds",
		},
		[]string{"path"},
	)
)
