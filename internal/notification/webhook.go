package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookSender posts notifications as JSON to an SMS or messaging gateway.
type WebhookSender struct {
	url    string
	token  string
	client *resty.Client
}

type webhookPayload struct {
	Kind        string `json:"kind"`
	Destination string `json:"destination"`
	Subject     string `json:"subject,omitempty"`
	Body        string `json:"body"`
	Code        string `json:"code,omitempty"`
}

// NewWebhookSender returns a sender for url. token, when set, is sent as a
// bearer token.
func NewWebhookSender(url, token string) (*WebhookSender, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	client := resty.New().
		SetTimeout(defaultWebhookTimeout).
		SetHeader("Content-Type", "application/json")
	return &WebhookSender{url: url, token: token, client: client}, nil
}

// Send posts the message and treats any non-2xx answer as a failure.
func (s *WebhookSender) Send(ctx context.Context, message Message) error {
	req := s.client.R().
		SetContext(ctx).
		SetBody(webhookPayload{
			Kind:        message.Kind,
			Destination: message.Destination,
			Subject:     message.Subject,
			Body:        message.Body,
			Code:        message.Code,
		})
	if s.token != "" {
		req.SetAuthToken(s.token)
	}
	resp, err := req.Post(s.url)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook: request failed status=%d", resp.StatusCode())
	}
	return nil
}
