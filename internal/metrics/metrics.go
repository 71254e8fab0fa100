// Package metrics provides Prometheus collectors for the recognition engine.
// All recording methods are safe to call on a nil *Metrics.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "facewatch"

// Metrics holds all engine collectors on a dedicated registry.
type Metrics struct {
	FramesProcessed   prometheus.Counter
	FrameErrors       *prometheus.CounterVec // by stage: capture, inference, persist, snapshot
	FacesClassified   *prometheus.CounterVec // by kind
	ActivePresence    *prometheus.GaugeVec   // by kind
	InferenceDuration prometheus.Histogram
	Subscribers       prometheus.Gauge
	SubscribersDrop   prometheus.Counter
	Notifications     *prometheus.CounterVec // by status: sent, failed, suppressed
	CatalogSize       *prometheus.GaugeVec   // by catalog
	CatalogSkipped    *prometheus.CounterVec // by catalog
	AttendanceWritten prometheus.Counter

	registry *prometheus.Registry
}

// New creates and registers all collectors on a fresh registry.
func New() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.initMetrics()

	collectors := []prometheus.Collector{
		m.FramesProcessed, m.FrameErrors, m.FacesClassified, m.ActivePresence,
		m.InferenceDuration, m.Subscribers, m.SubscribersDrop, m.Notifications,
		m.CatalogSize, m.CatalogSkipped, m.AttendanceWritten,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.FramesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_processed_total",
		Help:      "Frames that completed a recognition cycle",
	})
	m.FrameErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frame_errors_total",
		Help:      "Recoverable errors during a recognition cycle by stage",
	}, []string{"stage"})
	m.FacesClassified = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "faces_classified_total",
		Help:      "Detected faces by classification",
	}, []string{"kind"})
	m.ActivePresence = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_presence",
		Help:      "Currently tracked presence entries by kind",
	}, []string{"kind"})
	m.InferenceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "inference_duration_seconds",
		Help:      "Face model round-trip latency",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
	m.Subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_subscribers",
		Help:      "Live event subscribers",
	})
	m.SubscribersDrop = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_subscribers_dropped_total",
		Help:      "Subscribers removed after a failed delivery",
	})
	m.Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Flagged-person notifications by status",
	}, []string{"status"})
	m.CatalogSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "catalog_entries",
		Help:      "Matchable identities per catalog",
	}, []string{"catalog"})
	m.CatalogSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_skipped_total",
		Help:      "Catalog rows skipped during reload because of a missing or malformed embedding",
	}, []string{"catalog"})
	m.AttendanceWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attendance_records_written_total",
		Help:      "Attendance rows upserted",
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests and extra collectors).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) FrameProcessed() {
	if m == nil {
		return
	}
	m.FramesProcessed.Inc()
}

func (m *Metrics) FrameError(stage string) {
	if m == nil {
		return
	}
	m.FrameErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) FaceClassified(kind string) {
	if m == nil {
		return
	}
	m.FacesClassified.WithLabelValues(kind).Inc()
}

// SetActivePresence publishes per-kind counts; kinds missing from counts are set to 0.
func (m *Metrics) SetActivePresence(counts map[string]int) {
	if m == nil {
		return
	}
	for _, kind := range []string{"known", "bad", "unknown"} {
		m.ActivePresence.WithLabelValues(kind).Set(float64(counts[kind]))
	}
}

func (m *Metrics) ObserveInference(d time.Duration) {
	if m == nil {
		return
	}
	m.InferenceDuration.Observe(d.Seconds())
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.Subscribers.Set(float64(n))
}

func (m *Metrics) SubscriberDropped() {
	if m == nil {
		return
	}
	m.SubscribersDrop.Inc()
}

func (m *Metrics) Notification(status string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(status).Inc()
}

func (m *Metrics) CatalogLoaded(catalog string, loaded, skipped int) {
	if m == nil {
		return
	}
	m.CatalogSize.WithLabelValues(catalog).Set(float64(loaded))
	m.CatalogSkipped.WithLabelValues(catalog).Add(float64(skipped))
}

func (m *Metrics) AttendanceRecords(n int) {
	if m == nil {
		return
	}
	m.AttendanceWritten.Add(float64(n))
}
