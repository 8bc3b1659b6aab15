package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/storage"
)

// Store is the persistence the settings service reads through.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

var ErrInvalidEmail = errors.New("invalid email address")

// Service caches settings reads for a short TTL; writes go to the store and invalidate the
// cached value. Writes made by another process, such as the alert-email command, become
// visible once the cached value expires.
type Service struct {
	store    Store
	cache    *gocache.Cache
	validate *validator.Validate
	fallback string
}

// NewService returns a settings service. A ttl of zero or less disables caching, so every
// read goes to the store.
func NewService(store Store, ttl time.Duration, fallbackEmail string) *Service {
	s := &Service{
		store:    store,
		validate: validator.New(),
		fallback: strings.TrimSpace(fallbackEmail),
	}
	if ttl > 0 {
		s.cache = gocache.New(ttl, 2*ttl)
	}
	return s
}

// AlertEmail returns the alert recipient. An unset setting falls back to the configured
// default and finally to "", which means no recipient.
func (s *Service) AlertEmail(ctx context.Context) (string, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(models.SettingAlertRecipientEmail); ok {
			return v.(string), nil
		}
	}

	value, err := s.store.Get(ctx, models.SettingAlertRecipientEmail)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		value = s.fallback
	case err != nil:
		return "", err
	}

	if s.cache != nil {
		s.cache.SetDefault(models.SettingAlertRecipientEmail, value)
	}
	return value, nil
}

// SetAlertEmail validates and stores the alert recipient. An empty address clears it.
func (s *Service) SetAlertEmail(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email != "" && !s.ValidEmail(email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	if err := s.store.Set(ctx, models.SettingAlertRecipientEmail, email); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Delete(models.SettingAlertRecipientEmail)
	}

	log.Info().Str("email", email).Msg("Alert recipient updated")
	return nil
}

func (s *Service) ValidEmail(email string) bool {
	return s.validate.Var(email, "required,email") == nil
}
