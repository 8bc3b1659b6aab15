package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/storage"
)

type memoryStore struct {
	values map[string]string
	reads  int
	err    error
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.reads++
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key, value string) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func TestAlertEmailReadThrough(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{values: map[string]string{}}
	svc := NewService(store, time.Minute, "")

	email, err := svc.AlertEmail(ctx)
	require.NoError(t, err)
	assert.Empty(t, email)

	require.NoError(t, svc.SetAlertEmail(ctx, " guard@example.com "))

	email, err = svc.AlertEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "guard@example.com", email)

	reads := store.reads
	_, _ = svc.AlertEmail(ctx)
	assert.Equal(t, reads, store.reads, "second read is served from cache")
}

func TestAlertEmailSeesExternalWrites(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{values: map[string]string{}}

	cached := NewService(store, 20*time.Millisecond, "")
	uncached := NewService(store, 0, "")

	email, err := cached.AlertEmail(ctx)
	require.NoError(t, err)
	assert.Empty(t, email)

	// Another process updates the setting behind the service.
	store.values[models.SettingAlertRecipientEmail] = "night@example.com"

	email, err = uncached.AlertEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "night@example.com", email)

	time.Sleep(30 * time.Millisecond)
	email, err = cached.AlertEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "night@example.com", email, "a stale value expires after the ttl")
}

func TestAlertEmailFallback(t *testing.T) {
	svc := NewService(&memoryStore{values: map[string]string{}}, time.Minute, "default@example.com")

	email, err := svc.AlertEmail(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "default@example.com", email)
}

func TestSetAlertEmailValidation(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{values: map[string]string{}}
	svc := NewService(store, time.Minute, "")

	err := svc.SetAlertEmail(ctx, "not-an-email")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.Empty(t, store.values)

	require.NoError(t, svc.SetAlertEmail(ctx, ""), "clearing is allowed")
}

func TestAlertEmailStoreError(t *testing.T) {
	svc := NewService(&memoryStore{err: errors.New("db down")}, time.Minute, "")

	_, err := svc.AlertEmail(context.Background())
	assert.Error(t, err)
}
