package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Claim pipeline metrics
	// ============================================
	ClaimAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdrop_claim_attempts_total",
			Help: "Total claim attempts by terminal result",
		},
		[]string{"result"}, // success, paused, malformed_output, epoch_mismatch, root_mismatch, already_claimed, invalid_proof, transfer_failed, internal_error
	)

	ClaimDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "airdrop_claim_duration_seconds",
		Help:    "End-to-end claim attempt duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	NullifiersConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airdrop_nullifiers_consumed_total",
		Help: "Total nullifiers consumed by successful claims",
	})

	// ============================================
	// Verifier metrics
	// ============================================
	VerifierRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdrop_verifier_requests_total",
			Help: "Total requests to the external proof verifier",
		},
		[]string{"result"}, // accepted, rejected
	)

	VerifierDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "airdrop_verifier_duration_seconds",
		Help:    "Proof verification request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// ============================================
	// Distribution state metrics
	// ============================================
	CurrentEpoch = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airdrop_current_epoch",
		Help: "Currently active distribution epoch",
	})

	PausedState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airdrop_paused",
		Help: "Pause gate state (1=paused, 0=accepting claims)",
	})

	// ============================================
	// NATS metrics
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airdrop_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdrop_nats_messages_published_total",
			Help: "Total NATS event messages published",
		},
		[]string{"subject"},
	)

	NATSPublishFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdrop_nats_publish_failed_total",
			Help: "Total NATS event messages that failed to publish",
		},
		[]string{"subject"},
	)

	// ============================================
	// WebSocket metrics
	// ============================================
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airdrop_websocket_clients",
		Help: "Connected websocket event feed clients",
	})
)
