package notification

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/rs/zerolog/log"
)

// PushNotifier sends short text notifications to every configured shoutrrr URL
// (Telegram, Slack, ntfy, generic webhooks, ...).
type PushNotifier struct {
	urls   []string
	sender *router.ServiceRouter
}

func NewPushNotifier(urls []string, timeout time.Duration) (*PushNotifier, error) {
	p := &PushNotifier{urls: slices.Clone(urls)}
	if len(p.urls) == 0 {
		return p, nil
	}

	sender, err := shoutrrr.CreateSender(p.urls...)
	if err != nil {
		return nil, fmt.Errorf("invalid push notification URL: %w", err)
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(stdlog.New(io.Discard, "", 0))
	p.sender = sender

	log.Info().Int("channels", len(p.urls)).Msg("Push notifications enabled")
	return p, nil
}

func (p *PushNotifier) Enabled() bool {
	return p != nil && p.sender != nil
}

// Send delivers to all channels and returns the first error. The router applies its own timeout.
func (p *PushNotifier) Send(_ context.Context, title, message string) error {
	if !p.Enabled() {
		return nil
	}

	params := stypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}
	for _, err := range p.sender.Send(message, &params) {
		if err != nil {
			return fmt.Errorf("push notification failed: %w", err)
		}
	}
	return nil
}
