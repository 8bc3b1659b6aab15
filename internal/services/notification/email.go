package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"intrusion-worker-go/internal/config"
)

// SnapshotCID is the content id the inline snapshot is attached under.
const SnapshotCID = "snapshot.jpg"

// EmailMessage is an HTML email with an optional inline JPEG.
type EmailMessage struct {
	To       string
	Subject  string
	HTMLBody string
	Inline   []byte
}

// Mailer sends email notifications.
type Mailer interface {
	Enabled() bool
	Send(ctx context.Context, msg EmailMessage) error
}

// SMTPMailer delivers mail through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	m := &SMTPMailer{from: cfg.SMTPFrom}
	if cfg.SMTPHost != "" {
		m.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	if !m.Enabled() {
		log.Warn().Msg("SMTP is not configured, intrusion emails are disabled")
	}
	return m
}

func (m *SMTPMailer) Enabled() bool {
	return m != nil && m.dialer != nil && m.from != ""
}

func (m *SMTPMailer) Send(ctx context.Context, msg EmailMessage) error {
	if !m.Enabled() {
		return fmt.Errorf("smtp mailer is not configured")
	}

	message := BuildMessage(m.from, msg)

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(message) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("email to %s abandoned: %w", msg.To, ctx.Err())
	}
}

// BuildMessage assembles the MIME message, embedding the inline image under SnapshotCID.
func BuildMessage(from string, msg EmailMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	if len(msg.Inline) > 0 {
		inline := msg.Inline
		m.Embed(SnapshotCID, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(inline)
			return err
		}))
	}
	return m
}

var intrusionEmailTemplate = template.Must(template.New("intrusion").Parse(`<html>
<body style="font-family: sans-serif">
  <h2>Unknown face detected</h2>
  <p><strong>Camera:</strong> {{.CameraName}}</p>
  <p><strong>Time:</strong> {{.Timestamp}}</p>
  {{if .HasImage}}<p><img src="cid:{{.CID}}" alt="Unknown face" style="max-width: 320px"></p>{{end}}
</body>
</html>`))

// IntrusionEmail renders the alert email for one intrusion.
func IntrusionEmail(to, cameraName string, at time.Time, snapshot []byte) (EmailMessage, error) {
	var body bytes.Buffer
	err := intrusionEmailTemplate.Execute(&body, map[string]interface{}{
		"CameraName": cameraName,
		"Timestamp":  at.Local().Format("2006-01-02 15:04:05 MST"),
		"HasImage":   len(snapshot) > 0,
		"CID":        SnapshotCID,
	})
	if err != nil {
		return EmailMessage{}, fmt.Errorf("failed to render intrusion email: %w", err)
	}

	return EmailMessage{
		To:       to,
		Subject:  fmt.Sprintf("Intrusion alert: unknown face on %s", cameraName),
		HTMLBody: body.String(),
		Inline:   snapshot,
	}, nil
}
