// Package metrics exports gallery, enrollment and recognition metrics in
// Prometheus format. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "face_gallery"

// Enrollment and removal outcomes.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected" // invalid input or no face
	StatusError    = "error"    // embedder or persistence failure
)

// Per-face recognition outcomes.
const (
	FaceMatched = "matched"
	FaceUnknown = "unknown"
	FaceSkipped = "skipped" // no usable region
	FaceError   = "error"
)

// GalleryStats is the read side of the gallery needed for gauges.
type GalleryStats interface {
	Len() int
	Dimension() int
}

// Metrics holds the Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	enrollments  *prometheus.CounterVec
	removals     *prometheus.CounterVec
	faces        *prometheus.CounterVec
	frameLatency prometheus.Histogram
	embedLatency *prometheus.HistogramVec
}

// LatencyBuckets are the histogram buckets in seconds. Model calls on CPU
// can take several seconds per frame.
var LatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.enrollments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollments_total",
			Help:      "Enrollment attempts by outcome",
		},
		[]string{"status"},
	)
	m.removals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "removals_total",
			Help:      "Identity removals by outcome",
		},
		[]string{"status"},
	)
	m.faces = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faces_processed_total",
			Help:      "Faces processed during frame analysis by outcome",
		},
		[]string{"result"},
	)
	m.frameLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_analysis_seconds",
			Help:      "Frame analysis latency in seconds",
			Buckets:   LatencyBuckets,
		},
	)
	m.embedLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedder_request_seconds",
			Help:      "External embedder call latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"caller"},
	)

	m.registry.MustRegister(
		m.enrollments,
		m.removals,
		m.faces,
		m.frameLatency,
		m.embedLatency,
		prometheus.NewGoCollector(),
	)
	return m
}

// RegisterGallery exposes the gallery size and embedding dimension as gauges.
func (m *Metrics) RegisterGallery(g GalleryStats) {
	if m == nil {
		return
	}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "identities",
				Help:      "Number of enrolled identities",
			},
			func() float64 { return float64(g.Len()) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "embedding_dimension",
				Help:      "Embedding length used by the gallery (0 when empty)",
			},
			func() float64 { return float64(g.Dimension()) },
		),
	)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveEnrollment counts one enrollment attempt.
func (m *Metrics) ObserveEnrollment(status string) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(status).Inc()
}

// ObserveRemoval counts one removal attempt.
func (m *Metrics) ObserveRemoval(status string) {
	if m == nil {
		return
	}
	m.removals.WithLabelValues(status).Inc()
}

// ObserveFace counts one processed face.
func (m *Metrics) ObserveFace(result string) {
	if m == nil {
		return
	}
	m.faces.WithLabelValues(result).Inc()
}

// ObserveFrame records the duration of a whole frame analysis.
func (m *Metrics) ObserveFrame(d time.Duration) {
	if m == nil {
		return
	}
	m.frameLatency.Observe(d.Seconds())
}

// ObserveEmbed records the duration of one embedder call.
func (m *Metrics) ObserveEmbed(caller string, d time.Duration) {
	if m == nil {
		return
	}
	m.embedLatency.WithLabelValues(caller).Observe(d.Seconds())
}
