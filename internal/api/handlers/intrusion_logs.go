package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"intrusion-worker-go/internal/logging"
	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/storage"
)

// LogPager reads the intrusion log page by page.
type LogPager interface {
	Page(ctx context.Context, page, size int) (models.IntrusionLogPage, error)
}

// AlertDispatcher records an intrusion and notifies.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, snapshot, cameraName string) (models.IntrusionLogEntry, error)
}

type IntrusionLogHandler struct {
	logs       LogPager
	dispatcher AlertDispatcher
}

func NewIntrusionLogHandler(logs LogPager, dispatcher AlertDispatcher) *IntrusionLogHandler {
	return &IntrusionLogHandler{logs: logs, dispatcher: dispatcher}
}

// ListIntrusionLogs returns a page of the intrusion log
// @Summary List intrusion logs
// @Description Newest first. Out of range page and limit values are clamped.
// @Tags intrusion-logs
// @Produce json
// @Param page query int false "Page, 1-based" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} models.IntrusionLogPage
// @Failure 500 {object} ErrorResponse
// @Router /intrusion-logs [get]
func (h *IntrusionLogHandler) ListIntrusionLogs(c *gin.Context) {
	// Unparseable values fall back to the defaults through clamping.
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.logs.Page(c.Request.Context(), page, limit)
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to read intrusion logs")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// CreateIntrusionLog records an intrusion reported by a client
// @Summary Report an intrusion
// @Description Persists the intrusion and sends the alert email like a pipeline alert
// @Tags intrusion-logs
// @Accept json
// @Produce json
// @Param request body models.IntrusionLogRequest true "Intrusion"
// @Success 201 {object} models.IntrusionLogEntry
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /intrusion-logs [post]
func (h *IntrusionLogHandler) CreateIntrusionLog(c *gin.Context) {
	var req models.IntrusionLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	entry, err := h.dispatcher.Dispatch(c.Request.Context(), req.FaceImage, req.CameraName)
	if err != nil {
		if errors.Is(err, storage.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		logging.Error(c).Err(err).Str("camera_name", req.CameraName).Msg("Failed to record intrusion")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, entry)
}
