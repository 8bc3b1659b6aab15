package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"intrusion-worker-go/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "intrusion.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func embedding(fill float64) []float64 {
	e := make([]float64, models.EmbeddingSize)
	for i := range e {
		e[i] = fill
	}
	return e
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("postgres", "")
	assert.Error(t, err)
}

func TestGalleryUpsertAndList(t *testing.T) {
	ctx := context.Background()
	gallery := NewGalleryStore(setupTestDB(t))

	alice, err := gallery.Upsert(ctx, " alice ", [][]float64{embedding(0.1)}, "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)
	assert.NotEmpty(t, alice.ID)
	assert.Equal(t, "alice", alice.Label)

	updated, err := gallery.Upsert(ctx, "alice", [][]float64{embedding(0.2), embedding(0.3)}, "")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, updated.ID, "upsert by label keeps the identity")
	assert.Len(t, updated.Embeddings, 2)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", updated.Preview, "preview kept when not replaced")

	_, err = gallery.Upsert(ctx, "bob", [][]float64{embedding(0.5)}, "")
	require.NoError(t, err)

	identities, err := gallery.List(ctx)
	require.NoError(t, err)
	require.Len(t, identities, 2)

	got, err := gallery.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, got.Embeddings[1][127], 1e-12)
}

func TestGalleryValidation(t *testing.T) {
	ctx := context.Background()
	gallery := NewGalleryStore(setupTestDB(t))

	tests := []struct {
		name       string
		label      string
		embeddings [][]float64
	}{
		{name: "empty label", label: "  ", embeddings: [][]float64{embedding(0.1)}},
		{name: "no embeddings", label: "alice"},
		{name: "short embedding", label: "alice", embeddings: [][]float64{make([]float64, 127)}},
		{name: "one bad among good", label: "alice", embeddings: [][]float64{embedding(0.1), make([]float64, 129)}},
		{name: "reserved unknown label", label: "unknown", embeddings: [][]float64{embedding(0.1)}},
		{name: "reserved label ignores case", label: " Unknown ", embeddings: [][]float64{embedding(0.1)}},
		{name: "reserved unclassified label", label: "UNCLASSIFIED", embeddings: [][]float64{embedding(0.1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gallery.Upsert(ctx, tt.label, tt.embeddings, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	identities, err := gallery.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, identities)
}

func TestGalleryRemove(t *testing.T) {
	ctx := context.Background()
	gallery := NewGalleryStore(setupTestDB(t))

	alice, err := gallery.Upsert(ctx, "alice", [][]float64{embedding(0.1)}, "")
	require.NoError(t, err)

	require.NoError(t, gallery.Remove(ctx, alice.ID))
	assert.ErrorIs(t, gallery.Remove(ctx, alice.ID), ErrNotFound)

	_, err = gallery.Get(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIntrusionLogPaging(t *testing.T) {
	ctx := context.Background()
	logs := NewIntrusionLogStore(setupTestDB(t), 10, 50)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 23; i++ {
		_, err := logs.Append(ctx, models.IntrusionLogEntry{
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			FaceImage:  "data:image/jpeg;base64,AAAA",
			CameraName: "Front Door",
		})
		require.NoError(t, err)
	}

	tests := []struct {
		page, size   int
		wantPage     int
		wantSize     int
		wantEntries  int
		wantPages    int
		newestOffset int
	}{
		{page: 1, size: 10, wantPage: 1, wantSize: 10, wantEntries: 10, wantPages: 3, newestOffset: 22},
		{page: 3, size: 10, wantPage: 3, wantSize: 10, wantEntries: 3, wantPages: 3, newestOffset: 2},
		{page: 4, size: 10, wantPage: 4, wantSize: 10, wantEntries: 0, wantPages: 3},
		{page: 0, size: 0, wantPage: 1, wantSize: 10, wantEntries: 10, wantPages: 3, newestOffset: 22},
		{page: 1, size: 500, wantPage: 1, wantSize: 50, wantEntries: 23, wantPages: 1, newestOffset: 22},
		{page: 2, size: 23, wantPage: 2, wantSize: 23, wantEntries: 0, wantPages: 1},
	}

	for _, tt := range tests {
		got, err := logs.Page(ctx, tt.page, tt.size)
		require.NoError(t, err)
		assert.Equal(t, tt.wantPage, got.Page)
		assert.Equal(t, tt.wantSize, got.PageSize)
		assert.Equal(t, int64(23), got.TotalCount)
		assert.Equal(t, tt.wantPages, got.TotalPages)
		require.Len(t, got.Entries, tt.wantEntries)

		for i := 1; i < len(got.Entries); i++ {
			assert.True(t, got.Entries[i-1].Timestamp.After(got.Entries[i].Timestamp), "entries are strictly newest first")
		}
		if tt.wantEntries > 0 {
			assert.True(t, base.Add(time.Duration(tt.newestOffset)*time.Minute).Equal(got.Entries[0].Timestamp))
		}
	}
}

func TestIntrusionLogEmptyAndValidation(t *testing.T) {
	ctx := context.Background()
	logs := NewIntrusionLogStore(setupTestDB(t), 10, 50)

	page, err := logs.Page(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalPages)
	assert.Empty(t, page.Entries)

	_, err = logs.Append(ctx, models.IntrusionLogEntry{CameraName: "Front Door"})
	assert.ErrorIs(t, err, ErrValidation)

	entry, err := logs.Append(ctx, models.IntrusionLogEntry{FaceImage: "data:image/jpeg;base64,AAAA"})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	settings := NewSettingsStore(setupTestDB(t))

	_, err := settings.Get(ctx, models.SettingAlertRecipientEmail)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, settings.Set(ctx, models.SettingAlertRecipientEmail, "guard@example.com"))
	require.NoError(t, settings.Set(ctx, models.SettingAlertRecipientEmail, "owner@example.com"))

	value, err := settings.Get(ctx, models.SettingAlertRecipientEmail)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", value)
}
