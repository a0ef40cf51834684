// Package telemetry registers the router's Prometheus metrics and, when
// configured, serves them alongside a liveness probe on an admin HTTP
// server.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "procem_queue_depth",
		Help: "Current depth of an internal queue.",
	}, []string{"queue"})

	ValidationRejectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "procem_validation_rejects_total",
		Help: "Total datagram lines dropped by the validator.",
	})

	SpillSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "procem_spill_bytes",
		Help: "Size in bytes of the write-side spill file.",
	})

	UploadTriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "procem_upload_tries_total",
		Help: "Total upload attempts across all batches.",
	})
	UploadWrittenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "procem_upload_written_total",
		Help: "Total records successfully confirmed written to the cloud service.",
	})
	UploadCycledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "procem_upload_cycled_total",
		Help: "Total records re-enqueued with an incremented cycle count.",
	})
	UploadDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "procem_upload_dropped_total",
		Help: "Total records dropped for exceeding the maximum cycle count.",
	})
	UploadBatchSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "procem_upload_batch_seconds",
		Help:    "Wall-clock duration of one upload worker's batch attempt.",
		Buckets: prometheus.DefBuckets,
	})

	BackupTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "procem_backup_transitions_total",
		Help: "Total backup pipeline state transitions, by step name.",
	}, []string{"step"})
)

func init() {
	prometheus.MustRegister(
		QueueDepth,
		ValidationRejectsTotal,
		SpillSize,
		UploadTriesTotal,
		UploadWrittenTotal,
		UploadCycledTotal,
		UploadDroppedTotal,
		UploadBatchSeconds,
		BackupTransitionsTotal,
	)
}
