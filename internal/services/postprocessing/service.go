package postprocessing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"intrusion-worker-go/internal/helpers"
	"intrusion-worker-go/internal/metrics"
	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/services/notification"
	"intrusion-worker-go/internal/storage"
)

// LogStore persists intrusion log entries.
type LogStore interface {
	Append(ctx context.Context, entry models.IntrusionLogEntry) (models.IntrusionLogEntry, error)
}

// RecipientSource resolves the current alert email recipient.
type RecipientSource interface {
	AlertEmail(ctx context.Context) (string, error)
}

// EventPublisher broadcasts persisted intrusions to other systems.
type EventPublisher interface {
	PublishIntrusion(event models.IntrusionEvent) error
}

// Pusher sends short text notifications.
type Pusher interface {
	Enabled() bool
	Send(ctx context.Context, title, message string) error
}

// Options wires the dispatcher's optional collaborators.
type Options struct {
	WorkerID    string
	Mailer      notification.Mailer
	Recipients  RecipientSource
	Events      EventPublisher
	Push        Pusher
	Metrics     *metrics.PipelineMetrics
	SendTimeout time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service turns a confirmed intrusion into a persisted log entry plus best-effort notifications.
type Service struct {
	store    LogStore
	opts     Options
	validate *validator.Validate

	wg sync.WaitGroup

	warnMu     sync.Mutex
	lastWarned map[string]time.Time
}

func NewService(store LogStore, opts Options) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("intrusion log store is required")
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 15 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Service{
		store:      store,
		opts:       opts,
		validate:   validator.New(),
		lastWarned: make(map[string]time.Time),
	}

	log.Info().
		Bool("email_enabled", opts.Mailer != nil && opts.Mailer.Enabled()).
		Bool("push_enabled", opts.Push != nil && opts.Push.Enabled()).
		Bool("events_enabled", opts.Events != nil).
		Msg("Alert dispatcher initialized")

	return s, nil
}

// Dispatch records an intrusion seen on cameraName and notifies the configured recipient.
// Only persistence can fail the call; notification problems are logged.
func (s *Service) Dispatch(ctx context.Context, snapshot, cameraName string) (models.IntrusionLogEntry, error) {
	return s.DispatchFor(ctx, "", snapshot, cameraName)
}

// DispatchFor is Dispatch with the originating camera id attached to the broadcast event.
func (s *Service) DispatchFor(ctx context.Context, cameraID, snapshot, cameraName string) (models.IntrusionLogEntry, error) {
	if strings.TrimSpace(snapshot) == "" {
		return models.IntrusionLogEntry{}, &storage.ValidationError{Field: "face_image", Message: "snapshot is required"}
	}

	entry, err := s.store.Append(ctx, models.IntrusionLogEntry{
		Timestamp:  s.opts.Now().UTC(),
		FaceImage:  snapshot,
		CameraName: cameraName,
	})
	if err != nil {
		return models.IntrusionLogEntry{}, fmt.Errorf("failed to persist intrusion: %w", err)
	}

	s.opts.Metrics.RecordAlert(cameraName)
	log.Info().
		Str("log_id", entry.ID).
		Str("camera_id", cameraID).
		Str("camera_name", cameraName).
		Msg("🚨 Intrusion logged")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.notify(cameraID, entry)
	}()

	return entry, nil
}

// notify runs every notification channel for a persisted entry. It never returns an error.
func (s *Service) notify(cameraID string, entry models.IntrusionLogEntry) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("log_id", entry.ID).Msg("Notification panic recovered")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.SendTimeout)
	defer cancel()

	s.sendEmail(ctx, entry)

	if s.opts.Events != nil {
		err := s.opts.Events.PublishIntrusion(models.IntrusionEvent{
			LogID:      entry.ID,
			CameraID:   cameraID,
			CameraName: entry.CameraName,
			Timestamp:  entry.Timestamp,
			WorkerID:   s.opts.WorkerID,
		})
		if err != nil {
			s.opts.Metrics.RecordNotificationFailure("events")
			log.Warn().Err(err).Str("log_id", entry.ID).Msg("Failed to publish intrusion event")
		}
	}

	if s.opts.Push != nil && s.opts.Push.Enabled() {
		msg := fmt.Sprintf("Unknown face detected on %s at %s", entry.CameraName, entry.Timestamp.Local().Format("15:04:05"))
		if err := s.opts.Push.Send(ctx, "Intrusion alert", msg); err != nil {
			s.opts.Metrics.RecordNotificationFailure("push")
			log.Warn().Err(err).Str("log_id", entry.ID).Msg("Failed to send push notification")
		}
	}
}

func (s *Service) sendEmail(ctx context.Context, entry models.IntrusionLogEntry) {
	if s.opts.Mailer == nil || !s.opts.Mailer.Enabled() {
		s.warnOnce("mailer", "Email transport not configured, skipping intrusion email")
		return
	}
	if s.opts.Recipients == nil {
		s.warnOnce("recipient", "No alert recipient source, skipping intrusion email")
		return
	}

	to, err := s.opts.Recipients.AlertEmail(ctx)
	if err != nil {
		s.opts.Metrics.RecordNotificationFailure("email")
		log.Warn().Err(err).Msg("Failed to read alert recipient, skipping intrusion email")
		return
	}
	if to == "" {
		s.warnOnce("recipient", "No alert recipient configured, skipping intrusion email")
		return
	}
	if err := s.validate.Var(to, "email"); err != nil {
		s.warnOnce("recipient", "Alert recipient is not a valid email address, skipping intrusion email")
		return
	}

	image, _, err := helpers.ParseDataURI(entry.FaceImage)
	if err != nil {
		log.Debug().Err(err).Str("log_id", entry.ID).Msg("Snapshot is not a data URI, sending email without image")
		image = nil
	}

	msg, err := notification.IntrusionEmail(to, entry.CameraName, entry.Timestamp, image)
	if err == nil {
		err = s.opts.Mailer.Send(ctx, msg)
	}
	if err != nil {
		s.opts.Metrics.RecordNotificationFailure("email")
		log.Error().Err(err).Str("log_id", entry.ID).Str("to", to).Msg("Failed to send intrusion email")
		return
	}

	log.Info().Str("log_id", entry.ID).Str("to", to).Msg("📧 Intrusion email sent")
}

// warnOnce rate limits repeated configuration warnings to one per minute per reason.
func (s *Service) warnOnce(reason, msg string) {
	s.warnMu.Lock()
	defer s.warnMu.Unlock()

	now := time.Now()
	if last, ok := s.lastWarned[reason]; ok && now.Sub(last) < time.Minute {
		return
	}
	s.lastWarned[reason] = now
	log.Warn().Msg(msg)
}

// Wait blocks until all in-flight notifications have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Shutdown waits for in-flight notifications or until ctx is done.
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("Alert dispatcher shutdown")
		return nil
	case <-ctx.Done():
		return errors.New("alert dispatcher shutdown timed out with notifications in flight")
	}
}
