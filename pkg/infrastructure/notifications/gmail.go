package notifications

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/fitglue/crm-pipeline/pkg/credentials"
	"github.com/fitglue/crm-pipeline/pkg/domain/failure"
	"github.com/fitglue/crm-pipeline/pkg/infrastructure/oauth"
)

// GmailSender sends one message per call through the Gmail API as the
// account that owns the refresh token.
type GmailSender struct {
	exchanger *oauth.RefreshExchanger
	// endpoint overrides the Gmail API base URL (tests, emulators).
	endpoint string
	timeout  time.Duration
}

type GmailOption func(*GmailSender)

func WithEndpoint(endpoint string) GmailOption {
	return func(s *GmailSender) { s.endpoint = endpoint }
}

// WithTimeout bounds each Gmail API request.
func WithTimeout(d time.Duration) GmailOption {
	return func(s *GmailSender) { s.timeout = d }
}

func NewGmailSender(exchanger *oauth.RefreshExchanger, opts ...GmailOption) *GmailSender {
	s := &GmailSender{
		exchanger: exchanger,
		timeout:   30 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Send exchanges the bundle's refresh token and sends msg. Every failure is
// reported as SendFailed.
func (s *GmailSender) Send(ctx context.Context, b *credentials.Bundle, msg Message) error {
	if err := msg.Validate(); err != nil {
		return failure.New(failure.SendFailed, err)
	}

	tok, err := s.exchanger.Exchange(ctx, b.MailClientID, b.MailClientSecret, b.MailRefreshToken)
	if err != nil {
		return failure.New(failure.SendFailed, fmt.Errorf("token exchange: %w", err))
	}

	httpClient := &http.Client{
		Timeout: s.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(tok),
			Base:   http.DefaultTransport,
		},
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return failure.New(failure.SendFailed, fmt.Errorf("gmail client: %w", err))
	}

	raw := base64.URLEncoding.EncodeToString(msg.RFC822())
	sent, err := svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return failure.New(failure.SendFailed, err)
	}

	slog.Debug("Email sent", "message_id", sent.Id, "recipients", len(msg.Recipients))
	return nil
}
