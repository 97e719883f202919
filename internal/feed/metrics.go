package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blok_optimistic_rollbacks_total",
			Help: "Optimistic mutations reverted after a failed request",
		},
		[]string{"action"},
	)

	reconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blok_reconciliations_total",
			Help: "Reconciliation fetches after a successful mutation",
		},
		[]string{"action", "result"}, // applied | stale | failed
	)
)
