package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(registry)
	require.NoError(t, err)

	m.RecordTick("cam-1")
	m.RecordTick("cam-1")
	m.RecordDetections("cam-1", "unknown", 3)
	m.RecordDetections("cam-1", "known", 0)
	m.RecordAlert("Front Door")
	m.RecordNotificationFailure("email")
	m.ObserveDetectLatency("cam-1", 40*time.Millisecond)
	m.SetActiveCameras(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Ticks.WithLabelValues("cam-1")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Detections.WithLabelValues("cam-1", "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Alerts.WithLabelValues("Front Door")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveCameras))

	_, err = NewPipelineMetrics(registry)
	assert.Error(t, err, "double registration is rejected")
}

func TestNilPipelineMetrics(t *testing.T) {
	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.RecordTick("cam")
		m.RecordTickError("cam", "detect")
		m.RecordAlert("cam")
		m.SetGallerySize(3)
	})
}
