package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gochat",
		Subsystem: "chat",
		Name:      "mutations_total",
		Help:      "Committed chat mutations by operation.",
	}, []string{"op"})
	forwardFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gochat",
		Subsystem: "chat",
		Name:      "forward_failures_total",
		Help:      "Forward (message, target) pairs that failed to commit.",
	})
)
