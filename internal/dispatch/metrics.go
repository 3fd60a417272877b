package dispatch

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errand_jobs_dispatched_total",
			Help: "Total number of jobs started, by action and strategy.",
		},
		[]string{"action", "strategy"},
	)

	dispatchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errand_dispatch_failures_total",
			Help: "Total number of dispatch attempts rejected or failed, by action and reason.",
		},
		[]string{"action", "reason"},
	)
)

func init() {
	prometheus.MustRegister(jobsDispatchedTotal)
	prometheus.MustRegister(dispatchFailuresTotal)
}
