// Package metrics exposes Prometheus metrics for the detection pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics groups detection loop and alerting metrics. A nil *PipelineMetrics is
// valid and records nothing.
type PipelineMetrics struct {
	Ticks                *prometheus.CounterVec
	TickErrors           *prometheus.CounterVec
	Detections           *prometheus.CounterVec
	DetectLatency        *prometheus.HistogramVec
	Alerts               *prometheus.CounterVec
	NotificationFailures *prometheus.CounterVec
	ActiveCameras        prometheus.Gauge
	GallerySize          prometheus.Gauge
}

// NewPipelineMetrics creates the metrics and registers them with registry.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.Ticks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intrusion_detection_ticks_total",
		Help: "Detection ticks run per camera",
	}, []string{"camera"})

	m.TickErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intrusion_detection_tick_errors_total",
		Help: "Detection ticks that failed, by stage",
	}, []string{"camera", "stage"})

	m.Detections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intrusion_faces_detected_total",
		Help: "Faces detected, by classification result (known, unknown, unclassified)",
	}, []string{"camera", "result"})

	m.DetectLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "intrusion_detect_latency_seconds",
		Help:    "Latency of face detection calls",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"camera"})

	m.Alerts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intrusion_alerts_total",
		Help: "Intrusion alerts persisted, by camera name",
	}, []string{"camera"})

	m.NotificationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intrusion_notification_failures_total",
		Help: "Failed notification deliveries, by channel",
	}, []string{"channel"})

	m.ActiveCameras = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "intrusion_active_cameras",
		Help: "Cameras with a running detection loop",
	})

	m.GallerySize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "intrusion_gallery_identities",
		Help: "Identities loaded into the face matcher",
	})
}

// Describe implements the prometheus.Collector interface.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Ticks.Describe(ch)
	m.TickErrors.Describe(ch)
	m.Detections.Describe(ch)
	m.DetectLatency.Describe(ch)
	m.Alerts.Describe(ch)
	m.NotificationFailures.Describe(ch)
	ch <- m.ActiveCameras.Desc()
	ch <- m.GallerySize.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Ticks.Collect(ch)
	m.TickErrors.Collect(ch)
	m.Detections.Collect(ch)
	m.DetectLatency.Collect(ch)
	m.Alerts.Collect(ch)
	m.NotificationFailures.Collect(ch)
	ch <- m.ActiveCameras
	ch <- m.GallerySize
}

func (m *PipelineMetrics) RecordTick(camera string) {
	if m != nil {
		m.Ticks.WithLabelValues(camera).Inc()
	}
}

func (m *PipelineMetrics) RecordTickError(camera, stage string) {
	if m != nil {
		m.TickErrors.WithLabelValues(camera, stage).Inc()
	}
}

func (m *PipelineMetrics) RecordDetections(camera, result string, n int) {
	if m != nil && n > 0 {
		m.Detections.WithLabelValues(camera, result).Add(float64(n))
	}
}

func (m *PipelineMetrics) ObserveDetectLatency(camera string, d time.Duration) {
	if m != nil {
		m.DetectLatency.WithLabelValues(camera).Observe(d.Seconds())
	}
}

func (m *PipelineMetrics) RecordAlert(camera string) {
	if m != nil {
		m.Alerts.WithLabelValues(camera).Inc()
	}
}

func (m *PipelineMetrics) RecordNotificationFailure(channel string) {
	if m != nil {
		m.NotificationFailures.WithLabelValues(channel).Inc()
	}
}

func (m *PipelineMetrics) SetActiveCameras(n int) {
	if m != nil {
		m.ActiveCameras.Set(float64(n))
	}
}

func (m *PipelineMetrics) SetGallerySize(n int) {
	if m != nil {
		m.GallerySize.Set(float64(n))
	}
}
