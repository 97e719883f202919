package viewtrack

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSent    = "sent"
	resultFailed  = "failed"
	resultSkipped = "skipped"
)

var (
	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blok_view_batches_total",
			Help: "View report batches by result",
		},
		[]string{"result"},
	)

	idsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "blok_view_ids_total",
			Help: "Post ids reported as viewed",
		},
	)
)
