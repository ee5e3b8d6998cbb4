package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for SwapDesk.
type Metrics struct {
	// --- Lifecycle ---
	TradesBooked       prometheus.Counter
	TradesAmended      prometheus.Counter
	TradesTerminated   prometheus.Counter
	TradesCancelled    prometheus.Counter
	OperationsRejected *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec

	// --- Cashflows ---
	CashflowsGenerated prometheus.Counter

	// --- Search ---
	SearchQueries *prometheus.CounterVec
	SearchErrors  prometheus.Counter

	// --- Outbound events ---
	EventsPublished *prometheus.CounterVec
	PublishDrops    prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	opBuckets := []float64{
		0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0,
	}

	return &Metrics{
		TradesBooked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "swapdesk_trades_booked_total",
			Help: "Trades created successfully",
		}),

		TradesAmended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "swapdesk_trades_amended_total",
			Help: "Trade amendments applied",
		}),

		TradesTerminated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "swapdesk_trades_terminated_total",
			Help: "Trades terminated",
		}),

		TradesCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "swapdesk_trades_cancelled_total",
			Help: "Trades cancelled (includes soft deletes)",
		}),

		OperationsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "swapdesk_operations_rejected_total",
			Help: "Lifecycle operations rejected (validation, privilege, conflict, refdata)",
		}, []string{"operation", "reason"}),

		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swapdesk_operation_duration_seconds",
			Help:    "End-to-end duration of a lifecycle operation including commit",
			Buckets: opBuckets,
		}, []string{"operation"}),

		CashflowsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "swapdesk_cashflows_generated_total",
			Help: "Cashflow rows generated across all legs",
		}),

		SearchQueries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "swapdesk_search_queries_total",
			Help: "Trade search queries served",
		}, []string{"kind"}),

		SearchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "swapdesk_search_errors_total",
			Help: "Trade search queries that failed to parse or execute",
		}),

		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "swapdesk_events_published_total",
			Help: "Outbound lifecycle events published to NATS",
		}, []string{"action"}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "swapdesk_publish_drops_total",
			Help: "Outbound events dropped because the publish channel was full",
		}),
	}
}
