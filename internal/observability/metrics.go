package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PhotosProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventpix",
		Name:      "photos_processed_total",
		Help:      "Total number of uploaded photos run through descriptor extraction",
	}, []string{"outcome"}) // faces, no_face, error

	FacesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventpix",
		Name:      "faces_detected_total",
		Help:      "Total number of faces detected in uploaded photos",
	}, []string{"event_id"})

	RecognitionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventpix",
		Name:      "recognition_requests_total",
		Help:      "Total number of selfie recognition requests",
	}, []string{"outcome"}) // matched, no_match, no_face, error

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eventpix",
		Name:      "inference_duration_seconds",
		Help:      "Duration of pipeline stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"}) // decode, detect, embed, match, history

	HistoryWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventpix",
		Name:      "history_write_failures_total",
		Help:      "Number of photo history inserts that failed and were skipped",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eventpix",
		Name:      "queue_depth",
		Help:      "Number of pending photo extraction tasks in queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eventpix",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eventpix",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
