package upload

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsOpenedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filedepot_upload_sessions_opened_total",
		Help: "Upload sessions opened, by upload type.",
	}, []string{"type"})

	sessionsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filedepot_upload_sessions_completed_total",
		Help: "Upload sessions finalized successfully.",
	})

	chunksAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filedepot_upload_chunks_accepted_total",
		Help: "Chunks accepted into sessions.",
	})

	chunkBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filedepot_upload_chunk_bytes_total",
		Help: "Total chunk payload bytes accepted.",
	})

	virusDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filedepot_upload_virus_detected_total",
		Help: "Uploads rejected by the virus scanner.",
	})
)

func recordSessionOpened(uploadType string) {
	sessionsOpenedTotal.WithLabelValues(uploadType).Inc()
}

func recordSessionCompleted() {
	sessionsCompletedTotal.Inc()
}

func recordChunkAccepted(size int) {
	chunksAcceptedTotal.Inc()
	chunkBytesTotal.Add(float64(size))
}

func recordVirusDetected() {
	virusDetectedTotal.Inc()
}
