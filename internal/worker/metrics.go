package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "myvacbot_worker_jobs_total",
		Help: "The total number of blocking robot calls run by the worker pool",
	}, []string{"result"})

	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "myvacbot_worker_jobs_in_flight",
		Help: "The number of robot calls currently running",
	})
)
