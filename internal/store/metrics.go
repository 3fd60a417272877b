package store

import "github.com/prometheus/client_golang/prometheus"

const (
	tierDurable = "durable"
	tierMirror  = "mirror"
	tierMiss    = "miss"
)

var (
	storeWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errand_store_writes_total",
			Help: "Total number of job records persisted, by status.",
		},
		[]string{"status"},
	)

	storeWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "errand_store_write_failures_total",
			Help: "Total number of job record writes that failed after retries.",
		},
	)

	storeReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errand_store_reads_total",
			Help: "Total number of job record lookups, by the tier that answered.",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(storeWritesTotal)
	prometheus.MustRegister(storeWriteFailuresTotal)
	prometheus.MustRegister(storeReadsTotal)
}
