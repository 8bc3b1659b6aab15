package models

import (
	"time"
)

// CameraStatus represents the detection loop status of a camera
type CameraStatus string

const (
	CameraStatusRunning  CameraStatus = "running"
	CameraStatusStopping CameraStatus = "stopping"
	CameraStatusStopped  CameraStatus = "stopped"
)

func (cs CameraStatus) String() string {
	return string(cs)
}

// CameraRequest starts detection for a camera. When URL is set the worker captures the
// stream itself; otherwise frames are expected on the frame upload endpoint.
type CameraRequest struct {
	CameraID string `json:"camera_id" binding:"required" example:"cam-1"`
	Name     string `json:"name" example:"Front Door"`
	URL      string `json:"url,omitempty" example:"rtsp://10.0.0.5/stream1"`
}

// Camera is the runtime state of one camera's detection loop.
type Camera struct {
	ID        string
	Name      string
	URL       string
	CreatedAt time.Time

	// Statistics
	TickCount      int64
	ErrorCount     int64
	AlertCount     int64
	LastTickTime   time.Time
	LastDetectTime time.Duration
	LastError      string

	DisplayWidth  int
	DisplayHeight int

	// Overlay: classified detections from the last completed tick
	Overlay []ClassifiedDetection
}

// CameraResponse is the API view of a camera.
type CameraResponse struct {
	CameraID       string                `json:"camera_id"`
	Name           string                `json:"name"`
	URL            string                `json:"url,omitempty"`
	Status         CameraStatus          `json:"status"`
	TickCount      int64                 `json:"tick_count"`
	ErrorCount     int64                 `json:"error_count"`
	AlertCount     int64                 `json:"alert_count"`
	LastTickTime   time.Time             `json:"last_tick_time"`
	LastDetectMs   int64                 `json:"last_detect_ms"`
	LastError      string                `json:"last_error,omitempty"`
	DisplayWidth   int                   `json:"display_width"`
	DisplayHeight  int                   `json:"display_height"`
	Detections     []ClassifiedDetection `json:"detections"`
	TrackedBuckets int                   `json:"tracked_buckets"`
	CreatedAt      time.Time             `json:"created_at"`
}
