package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"intrusion-worker-go/internal/models"
)

// IntrusionLogStore is the append-only log of confirmed intrusions.
type IntrusionLogStore struct {
	db              *gorm.DB
	defaultPageSize int
	maxPageSize     int
}

func NewIntrusionLogStore(db *gorm.DB, defaultPageSize, maxPageSize int) *IntrusionLogStore {
	if defaultPageSize < 1 {
		defaultPageSize = 10
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = defaultPageSize
	}
	return &IntrusionLogStore{db: db, defaultPageSize: defaultPageSize, maxPageSize: maxPageSize}
}

// Append stores a new entry. ID and Timestamp are filled in when empty.
func (s *IntrusionLogStore) Append(ctx context.Context, entry models.IntrusionLogEntry) (models.IntrusionLogEntry, error) {
	if strings.TrimSpace(entry.FaceImage) == "" {
		return models.IntrusionLogEntry{}, &ValidationError{Field: "face_image", Message: "must not be empty"}
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return models.IntrusionLogEntry{}, fmt.Errorf("failed to append intrusion log: %w", err)
	}
	return entry, nil
}

// Page returns entries newest first. Out-of-range page numbers and sizes are clamped.
func (s *IntrusionLogStore) Page(ctx context.Context, page, size int) (models.IntrusionLogPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = s.defaultPageSize
	}
	if size > s.maxPageSize {
		size = s.maxPageSize
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.IntrusionLogEntry{}).Count(&total).Error; err != nil {
		return models.IntrusionLogPage{}, fmt.Errorf("failed to count intrusion logs: %w", err)
	}

	entries := make([]models.IntrusionLogEntry, 0, size)
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&entries).Error
	if err != nil {
		return models.IntrusionLogPage{}, fmt.Errorf("failed to page intrusion logs: %w", err)
	}

	return models.IntrusionLogPage{
		Entries:    entries,
		Page:       page,
		PageSize:   size,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
		TotalCount: total,
	}, nil
}
