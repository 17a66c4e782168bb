// Package metrics carries the prometheus instrumentation shared by the edge
// and host sessions. Collectors register on the default registry; binaries
// expose them with promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PublishedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sparkplug_published_messages_total",
		Help: "Sparkplug messages handed to the MQTT transport, by message type.",
	}, []string{"type"})

	ReceivedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sparkplug_received_messages_total",
		Help: "Inbound Sparkplug messages dispatched by the host observer or taken in as NCMD by an edge node, by message type.",
	}, []string{"type"})

	DecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparkplug_payload_decode_failures_total",
		Help: "Inbound payloads that failed to decode against the Tahu schema.",
	})

	SequenceWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparkplug_sequence_warnings_total",
		Help: "Sequence gaps and ordering violations the observer logged.",
	})

	CachedMessages = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sparkplug_cached_messages",
		Help: "Device metrics buffered for store-and-forward replay.",
	})
)
