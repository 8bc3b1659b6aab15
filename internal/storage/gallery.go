package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"intrusion-worker-go/internal/models"
)

// GalleryStore persists the identities used for recognition.
type GalleryStore struct {
	db *gorm.DB
}

func NewGalleryStore(db *gorm.DB) *GalleryStore {
	return &GalleryStore{db: db}
}

// ValidateIdentity checks a label and its embeddings before they are stored.
func ValidateIdentity(label string, embeddings [][]float64) error {
	if strings.TrimSpace(label) == "" {
		return &ValidationError{Field: "label", Message: "must not be empty"}
	}
	if models.ReservedLabel(label) {
		return &ValidationError{Field: "label", Message: fmt.Sprintf("%q is reserved", strings.TrimSpace(label))}
	}
	if len(embeddings) == 0 {
		return &ValidationError{Field: "embeddings", Message: "at least one embedding is required"}
	}
	for i, emb := range embeddings {
		if len(emb) != models.EmbeddingSize {
			return &ValidationError{
				Field:   fmt.Sprintf("embeddings[%d]", i),
				Message: fmt.Sprintf("expected %d values, got %d", models.EmbeddingSize, len(emb)),
			}
		}
		for _, v := range emb {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &ValidationError{Field: fmt.Sprintf("embeddings[%d]", i), Message: "contains non-finite values"}
			}
		}
	}
	return nil
}

// Upsert creates an identity, or replaces the embeddings of the identity with the same label.
// The stored preview is only replaced when a new one is given.
func (s *GalleryStore) Upsert(ctx context.Context, label string, embeddings [][]float64, preview string) (models.Identity, error) {
	label = strings.TrimSpace(label)
	if err := ValidateIdentity(label, embeddings); err != nil {
		return models.Identity{}, err
	}

	var identity models.Identity
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("label = ?", label).First(&identity).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			identity = models.Identity{
				ID:         uuid.NewString(),
				Label:      label,
				Embeddings: embeddings,
				Preview:    preview,
			}
			return tx.Create(&identity).Error
		case err != nil:
			return err
		}

		identity.Embeddings = embeddings
		if preview != "" {
			identity.Preview = preview
		}
		return tx.Save(&identity).Error
	})
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to upsert identity %q: %w", label, err)
	}
	return identity, nil
}

// List returns all identities, newest first.
func (s *GalleryStore) List(ctx context.Context) ([]models.Identity, error) {
	var identities []models.Identity
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("label").Find(&identities).Error; err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	return identities, nil
}

func (s *GalleryStore) Get(ctx context.Context, id string) (models.Identity, error) {
	var identity models.Identity
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Identity{}, fmt.Errorf("identity %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to get identity %s: %w", id, err)
	}
	return identity, nil
}

func (s *GalleryStore) Remove(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Identity{})
	if res.Error != nil {
		return fmt.Errorf("failed to remove identity %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("identity %s: %w", id, ErrNotFound)
	}
	return nil
}
