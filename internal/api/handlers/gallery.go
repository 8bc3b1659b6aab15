package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"intrusion-worker-go/internal/helpers"
	"intrusion-worker-go/internal/logging"
	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/storage"
)

// GalleryStore persists known faces.
type GalleryStore interface {
	Upsert(ctx context.Context, label string, embeddings [][]float64, preview string) (models.Identity, error)
	List(ctx context.Context) ([]models.Identity, error)
	Remove(ctx context.Context, id string) error
}

// GalleryReloader rebuilds the matcher after the gallery changed.
type GalleryReloader interface {
	ReloadGallery(ctx context.Context) (int, error)
}

type GalleryHandler struct {
	store          GalleryStore
	reloader       GalleryReloader
	previewMaxSize int
}

func NewGalleryHandler(store GalleryStore, reloader GalleryReloader, previewMaxSize int) *GalleryHandler {
	return &GalleryHandler{
		store:          store,
		reloader:       reloader,
		previewMaxSize: previewMaxSize,
	}
}

// ListKnownFaces lists the gallery
// @Summary List known faces
// @Description Known identities without their embeddings
// @Tags known-faces
// @Produce json
// @Success 200 {array} models.IdentitySummary
// @Failure 500 {object} ErrorResponse
// @Router /known-faces [get]
func (h *GalleryHandler) ListKnownFaces(c *gin.Context) {
	identities, err := h.store.List(c.Request.Context())
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to list known faces")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	out := make([]models.IdentitySummary, 0, len(identities))
	for _, identity := range identities {
		out = append(out, identity.Summary())
	}
	c.JSON(http.StatusOK, out)
}

// UpsertKnownFace adds or replaces an identity
// @Summary Add or update a known face
// @Description Replaces the embeddings of an existing label. The optional preview is a data URI image, stored as a thumbnail.
// @Tags known-faces
// @Accept json
// @Produce json
// @Param request body models.IdentityRequest true "Identity"
// @Success 200 {object} models.IdentitySummary
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /known-faces [post]
func (h *GalleryHandler) UpsertKnownFace(c *gin.Context) {
	var req models.IdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := storage.ValidateIdentity(req.Label, req.Embeddings); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	preview := ""
	if req.Preview != "" {
		p, err := helpers.PreviewDataURI(req.Preview, h.previewMaxSize)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "preview: " + err.Error()})
			return
		}
		preview = p
	}

	identity, err := h.store.Upsert(c.Request.Context(), req.Label, req.Embeddings, preview)
	if err != nil {
		if errors.Is(err, storage.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		logging.Error(c).Err(err).Str("label", req.Label).Msg("Failed to save known face")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	h.reload(c)

	logging.Info(c).
		Str("label", identity.Label).
		Int("embeddings", len(identity.Embeddings)).
		Msg("Known face saved")

	c.JSON(http.StatusOK, identity.Summary())
}

// DeleteKnownFace removes an identity
// @Summary Delete a known face
// @Tags known-faces
// @Param id path string true "Identity ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /known-faces/{id} [delete]
func (h *GalleryHandler) DeleteKnownFace(c *gin.Context) {
	if err := h.store.Remove(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Known face not found"})
			return
		}
		logging.Error(c).Err(err).Msg("Failed to delete known face")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	h.reload(c)
	c.JSON(http.StatusOK, SuccessResponse{Message: "Known face deleted"})
}

// reload rebuilds the matcher. The write already succeeded, so a failure is only logged and
// the previous matcher stays active until the next successful reload.
func (h *GalleryHandler) reload(c *gin.Context) {
	if h.reloader == nil {
		return
	}
	if _, err := h.reloader.ReloadGallery(c.Request.Context()); err != nil {
		logging.Error(c).Err(err).Msg("Failed to rebuild matcher after gallery change")
	}
}
