package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsMarked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mahudhurio",
		Subsystem: "attendance",
		Name:      "records_marked_total",
		Help:      "Attendance records written, by status.",
	}, []string{"status"})

	batchesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mahudhurio",
		Subsystem: "attendance",
		Name:      "batches_rejected_total",
		Help:      "Mark-attendance batches rejected, by reason.",
	}, []string{"reason"})

	reportsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mahudhurio",
		Subsystem: "attendance",
		Name:      "reports_total",
		Help:      "Attendance reports built, by kind.",
	}, []string{"kind"})
)
