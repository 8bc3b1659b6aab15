package models

import (
	"strings"
	"time"
)

// EmbeddingSize is the length of every face embedding produced by the recognition model.
const EmbeddingSize = 128

// UnknownLabel is the sentinel label for faces that match no identity.
const UnknownLabel = "unknown"

// ReservedLabel reports whether label collides, ignoring case and surrounding space, with a
// label the pipeline assigns itself. Such labels cannot name a gallery identity.
func ReservedLabel(label string) bool {
	label = strings.TrimSpace(label)
	return strings.EqualFold(label, UnknownLabel) || strings.EqualFold(label, UnclassifiedLabel)
}

// Identity is a labeled person in the recognition gallery with one or more reference embeddings.
type Identity struct {
	ID         string      `gorm:"primaryKey;size:36" json:"id"`
	Label      string      `gorm:"uniqueIndex;size:191;not null" json:"label" example:"alice"`
	Embeddings [][]float64 `gorm:"serializer:json;type:text;not null" json:"embeddings" swaggertype:"array,number"`
	Preview    string      `gorm:"type:text" json:"preview,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (Identity) TableName() string { return "known_faces" }

// IdentityRequest is the upsert body for the gallery.
type IdentityRequest struct {
	Label      string      `json:"label" binding:"required" example:"alice"`
	Embeddings [][]float64 `json:"embeddings" binding:"required" swaggertype:"array,number"`
	Preview    string      `json:"preview,omitempty"`
}

// IdentitySummary is an Identity without its embeddings, for listings.
type IdentitySummary struct {
	ID             string    `json:"id"`
	Label          string    `json:"label"`
	EmbeddingCount int       `json:"embedding_count"`
	Preview        string    `json:"preview,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (i Identity) Summary() IdentitySummary {
	return IdentitySummary{
		ID:             i.ID,
		Label:          i.Label,
		EmbeddingCount: len(i.Embeddings),
		Preview:        i.Preview,
		CreatedAt:      i.CreatedAt,
	}
}
