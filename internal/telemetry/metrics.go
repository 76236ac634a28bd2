package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_http_requests_in_flight",
			Help: "Number of HTTP requests being served",
		},
	)

	// Transfer metrics
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transfers_total",
			Help: "Total number of transfer attempts",
		},
		[]string{"status"}, // success, not_found, invalid_amount, same_account, insufficient_funds, update_failed
	)

	TransferAmount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_transfer_amount",
			Help:    "Transfer amount distribution",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000},
		},
		[]string{"status"},
	)

	TransferProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_transfer_processing_duration_seconds",
			Help:    "Time to execute a transfer including lock wait",
			Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	// UpdateFaultsTotal counts accounts that vanished between lookup and update
	UpdateFaultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_update_faults_total",
			Help: "Total number of account updates that found no account",
		},
	)

	// Account metrics
	AccountBalanceGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledger_account_balance",
			Help: "Current account balance",
		},
		[]string{"account"},
	)

	TotalBalanceGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_total_balance",
			Help: "Total balance across all accounts",
		},
	)

	AccountCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_account_count",
			Help: "Total number of accounts",
		},
	)

	// Notification metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_notifications_total",
			Help: "Total number of notifications by sink and result",
		},
		[]string{"sink", "result"}, // sent, failed, dropped
	)

	// NATS metrics
	NATSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_nats_messages_received_total",
			Help: "Total number of NATS messages received",
		},
		[]string{"subject"},
	)
)
