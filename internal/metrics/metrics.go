package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Ledger store traffic
	LedgerFetchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_fetches_total",
			Help: "Total full-snapshot contact fetches",
		},
	)
	LedgerWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_writes_total",
			Help: "Total successful ledger writes",
		},
		[]string{"op"}, // create_contact|append_transaction|update_contact|update_transaction
	)
	LedgerWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_write_failures_total",
			Help: "Total failed ledger writes",
		},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

func Init() {
	prometheus.MustRegister(LedgerFetchesTotal)
	prometheus.MustRegister(LedgerWritesTotal)
	prometheus.MustRegister(LedgerWriteFailures)
	prometheus.MustRegister(WorkerQueueDepth)
}
