package messaging

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"intrusion-worker-go/internal/config"
	"intrusion-worker-go/internal/models"
)

// Headers set on intrusion events published to NATS.
const (
	HeaderCameraID = "Intrusion-Camera-Id"
	HeaderWorkerID = "Intrusion-Worker-Id"
)

// Service publishes intrusion events on NATS. Each event goes to <subject>.<camera> with the
// log id as Nats-Msg-Id, so JetStream streams bound to <subject>.> deduplicate redeliveries.
type Service struct {
	conn *nats.Conn
	cfg  *config.Config
}

func NewService(cfg *config.Config) (*Service, error) {
	opts := []nats.Option{
		nats.Name("intrusion-worker-" + cfg.WorkerID),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("url", cfg.NatsURL).
		Str("subject", cfg.IntrusionSubject+".>").
		Msg("NATS connection established")

	return &Service{
		conn: conn,
		cfg:  cfg,
	}, nil
}

// Publish sends an IntrusionEvent as a per-camera message with headers. Any other value is
// published as plain JSON on subject.
func (s *Service) Publish(subject string, data interface{}) error {
	if event, ok := data.(models.IntrusionEvent); ok {
		msg, err := IntrusionMsg(subject, event)
		if err != nil {
			return err
		}
		return s.conn.PublishMsg(msg)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.conn.Publish(subject, payload)
}

// IntrusionMsg builds the NATS message for an intrusion event.
func IntrusionMsg(subject string, event models.IntrusionEvent) (*nats.Msg, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	msg := nats.NewMsg(subject + "." + SubjectToken(event.CameraID))
	msg.Data = payload
	msg.Header.Set("Content-Type", "application/json")
	if event.LogID != "" {
		msg.Header.Set(nats.MsgIdHdr, event.LogID)
	}
	if event.CameraID != "" {
		msg.Header.Set(HeaderCameraID, event.CameraID)
	}
	if event.WorkerID != "" {
		msg.Header.Set(HeaderWorkerID, event.WorkerID)
	}
	return msg, nil
}

// SubjectToken turns a camera id into a single subject token. Separators, wildcards and
// whitespace become '_'; an empty id becomes "_".
func SubjectToken(id string) string {
	token := strings.Map(func(r rune) rune {
		if r == '.' || r == '*' || r == '>' || unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, id)
	if token == "" {
		return "_"
	}
	return token
}

func (s *Service) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Shutdown flushes pending events, then drains the connection.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	if s.conn.IsConnected() {
		if err := s.conn.FlushWithContext(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush NATS before shutdown")
		}
	}
	if err := s.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
		s.conn.Close()
	}
	return nil
}
