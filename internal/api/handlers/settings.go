package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"intrusion-worker-go/internal/logging"
	"intrusion-worker-go/internal/services/settings"
)

// AlertSettings reads and writes the alert recipient.
type AlertSettings interface {
	AlertEmail(ctx context.Context) (string, error)
	SetAlertEmail(ctx context.Context, email string) error
}

type SettingsHandler struct {
	settings AlertSettings
}

func NewSettingsHandler(s AlertSettings) *SettingsHandler {
	return &SettingsHandler{settings: s}
}

type AlertEmailRequest struct {
	Email string `json:"email" example:"security@example.com"`
}

type AlertEmailResponse struct {
	Email string `json:"email" example:"security@example.com"`
}

// GetAlertEmail returns the alert recipient
// @Summary Get alert recipient
// @Tags settings
// @Produce json
// @Success 200 {object} AlertEmailResponse
// @Failure 500 {object} ErrorResponse
// @Router /settings/alert-email [get]
func (h *SettingsHandler) GetAlertEmail(c *gin.Context) {
	email, err := h.settings.AlertEmail(c.Request.Context())
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to read alert recipient")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, AlertEmailResponse{Email: email})
}

// SetAlertEmail updates the alert recipient
// @Summary Set alert recipient
// @Description An empty email clears the recipient and disables alert emails
// @Tags settings
// @Accept json
// @Produce json
// @Param request body AlertEmailRequest true "Recipient"
// @Success 200 {object} AlertEmailResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /settings/alert-email [put]
func (h *SettingsHandler) SetAlertEmail(c *gin.Context) {
	var req AlertEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.settings.SetAlertEmail(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, settings.ErrInvalidEmail) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		logging.Error(c).Err(err).Msg("Failed to update alert recipient")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	email, err := h.settings.AlertEmail(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, AlertEmailResponse{Email: email})
}
