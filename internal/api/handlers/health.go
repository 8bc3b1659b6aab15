package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// CameraStats reports running and known cameras.
type CameraStats interface {
	GetStats() (int, int)
}

// DetectorHealth reports whether the face detector is reachable.
type DetectorHealth interface {
	IsHealthy() bool
}

// GallerySize reports how many identities the active matcher knows.
type GallerySize interface {
	GallerySize() int
}

type HealthHandler struct {
	WorkerID string
	Version  string

	cameras  CameraStats
	detector DetectorHealth
	gallery  GallerySize
	started  time.Time
}

func NewHealthHandler(workerID, version string, cameras CameraStats, detector DetectorHealth, gallery GallerySize) *HealthHandler {
	return &HealthHandler{
		WorkerID: workerID,
		Version:  version,
		cameras:  cameras,
		detector: detector,
		gallery:  gallery,
		started:  time.Now(),
	}
}

type HealthResponse struct {
	Status           string `json:"status" example:"healthy"`
	WorkerID         string `json:"worker_id" example:"worker-1"`
	DetectorHealthy  bool   `json:"detector_healthy"`
	ActiveCameras    int    `json:"active_cameras"`
	TotalCameras     int    `json:"total_cameras"`
	KnownIdentities  int    `json:"known_identities"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	Goroutines       int    `json:"goroutines"`
	MemoryAllocBytes uint64 `json:"memory_alloc_bytes"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"worker-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Worker health with detector reachability and camera counts. Reports degraded while the detector is down.
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := HealthResponse{
		Status:           "healthy",
		WorkerID:         h.WorkerID,
		DetectorHealthy:  h.detector == nil || h.detector.IsHealthy(),
		UptimeSeconds:    int64(time.Since(h.started).Seconds()),
		Goroutines:       runtime.NumGoroutine(),
		MemoryAllocBytes: m.Alloc,
	}
	if h.cameras != nil {
		resp.ActiveCameras, resp.TotalCameras = h.cameras.GetStats()
	}
	if h.gallery != nil {
		resp.KnownIdentities = h.gallery.GallerySize()
	}
	if !resp.DetectorHealthy {
		resp.Status = "degraded"
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Worker information
// @Description Get basic worker information and capabilities
// @Tags health
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID: h.WorkerID,
		Status:   "running",
		Version:  h.Version,
		Capabilities: []string{
			"face_recognition",
			"intrusion_alerts",
			"email_notifications",
		},
	})
}
