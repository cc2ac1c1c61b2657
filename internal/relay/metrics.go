package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatbox_relay_connected_clients",
			Help: "Identities currently connected",
		},
	)

	Handshakes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbox_relay_handshakes_total",
			Help: "Handshakes by result",
		},
		[]string{"result"}, // "welcome", "reject", "error"
	)

	FramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbox_relay_frames_total",
			Help: "Frames received from clients by kind",
		},
		[]string{"kind"},
	)

	Acknowledgements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbox_relay_acknowledgements_total",
			Help: "Status frames sent to senders by result",
		},
		[]string{"result"}, // "ack", "duplicate", "err"
	)

	DeliveryLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatbox_relay_delivery_seconds",
			Help:    "Time from receiving a send frame to acknowledging it",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		},
	)
)
