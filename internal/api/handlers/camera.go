package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"intrusion-worker-go/internal/logging"
	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/services/camera"
)

// maxFrameBytes bounds an uploaded frame.
const maxFrameBytes = 10 << 20

// CameraService is the camera manager surface used by the HTTP API.
type CameraService interface {
	StartCamera(req *models.CameraRequest) (*models.CameraResponse, error)
	StopCamera(cameraID string) error
	GetCamera(cameraID string) (*models.CameraResponse, error)
	ListCameras() []*models.CameraResponse
	SubmitFrame(cameraID string, data []byte, displayWidth, displayHeight int) error
}

type CameraHandler struct {
	cameraManager CameraService
}

func NewCameraHandler(cameraManager CameraService) *CameraHandler {
	return &CameraHandler{
		cameraManager: cameraManager,
	}
}

// FrameQuery carries the size the client displays the frame at.
type FrameQuery struct {
	DisplayWidth  int `form:"display_width" binding:"min=0"`
	DisplayHeight int `form:"display_height" binding:"min=0"`
}

// StartCamera starts the detection loop of a camera
// @Summary Start a camera
// @Description Start unknown-face detection for a camera. Starting a running camera returns its status unchanged.
// @Tags cameras
// @Accept json
// @Produce json
// @Param request body models.CameraRequest true "Camera"
// @Success 200 {object} models.CameraResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /cameras [post]
func (h *CameraHandler) StartCamera(c *gin.Context) {
	var req models.CameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logging.Warn(c).Err(err).Msg("Invalid camera request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.cameraManager.StartCamera(&req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, camera.ErrTooManyCameras) || errors.Is(err, camera.ErrCameraStopping) {
			status = http.StatusConflict
		}
		logging.Error(c).Err(err).Str("camera_id", req.CameraID).Msg("Failed to start camera")
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}

	logging.Info(c).
		Str("camera_id", req.CameraID).
		Str("name", req.Name).
		Bool("capture", req.URL != "").
		Msg("Camera started")

	c.JSON(http.StatusOK, resp)
}

// StopCamera stops the detection loop of a camera
// @Summary Stop a camera
// @Description Stop detection and clear the camera overlay. Stopping an unknown camera succeeds.
// @Tags cameras
// @Param id path string true "Camera ID"
// @Success 200 {object} SuccessResponse
// @Failure 500 {object} ErrorResponse
// @Router /cameras/{id} [delete]
func (h *CameraHandler) StopCamera(c *gin.Context) {
	cameraID := c.Param("id")

	if err := h.cameraManager.StopCamera(cameraID); err != nil {
		logging.Error(c).Err(err).Msg("Failed to stop camera")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Camera stopped successfully"})
}

// GetCamera gets camera status
// @Summary Get camera status
// @Description Loop status, statistics and the detections of the last tick
// @Tags cameras
// @Param id path string true "Camera ID"
// @Success 200 {object} models.CameraResponse
// @Failure 404 {object} ErrorResponse
// @Router /cameras/{id} [get]
func (h *CameraHandler) GetCamera(c *gin.Context) {
	resp, err := h.cameraManager.GetCamera(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Camera not found"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListCameras lists all cameras
// @Summary List cameras
// @Tags cameras
// @Success 200 {object} map[string]interface{}
// @Router /cameras [get]
func (h *CameraHandler) ListCameras(c *gin.Context) {
	cameras := h.cameraManager.ListCameras()
	c.JSON(http.StatusOK, gin.H{
		"cameras": cameras,
		"count":   len(cameras),
	})
}

// SubmitFrame stores an uploaded JPEG as the latest frame of a camera
// @Summary Upload a frame
// @Description Replace the camera's latest frame. Detections are reported in display_width x display_height coordinates.
// @Tags cameras
// @Accept image/jpeg
// @Produce json
// @Param id path string true "Camera ID"
// @Param display_width query int false "Display width"
// @Param display_height query int false "Display height"
// @Success 202 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Router /cameras/{id}/frame [put]
func (h *CameraHandler) SubmitFrame(c *gin.Context) {
	var q FrameQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxFrameBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "frame too large"})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	err = h.cameraManager.SubmitFrame(c.Param("id"), data, q.DisplayWidth, q.DisplayHeight)
	switch {
	case errors.Is(err, camera.ErrCameraNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Camera not found"})
	case errors.Is(err, camera.ErrInvalidFrame):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case err != nil:
		logging.Error(c).Err(err).Msg("Failed to store frame")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusAccepted, SuccessResponse{Message: "Frame accepted"})
	}
}
