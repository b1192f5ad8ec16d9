package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sacredflow/backend-go/internal/config"
	"github.com/sacredflow/backend-go/internal/db/models"
	"github.com/sacredflow/backend-go/pkg/logger"
)

const forwardTimeout = 10 * time.Second

// Forwarder relays inbound messages to external notification endpoints: the
// Square-chat bridge, the email forwarder, the mobile push service, and
// Slack. Every forward is best effort; failures come back as warnings and
// never fail the operation that triggered them.
type Forwarder struct {
	client *http.Client
	cfg    *config.ForwardingConfig
}

// NewForwarder creates a Forwarder. Endpoints with an empty URL are skipped.
func NewForwarder(cfg *config.ForwardingConfig) *Forwarder {
	return &Forwarder{
		client: &http.Client{Timeout: forwardTimeout},
		cfg:    cfg,
	}
}

// ForwardChatMessage pushes an inbound chat message to each configured
// endpoint and returns one warning per endpoint that failed.
func (f *Forwarder) ForwardChatMessage(ctx context.Context, comm *models.Communication) []string {
	var warnings []string

	if f.cfg.ChatWebhookURL != "" {
		payload := map[string]any{
			"channel":       comm.Channel,
			"body":          comm.Body,
			"contact_email": comm.ContactEmail,
			"contact_name":  comm.ContactName,
			"received_at":   comm.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.post(ctx, f.cfg.ChatWebhookURL, f.cfg.ChatBearerToken, payload); err != nil {
			warnings = append(warnings, "chat forward failed: "+err.Error())
		}
	}

	if f.cfg.EmailWebhookURL != "" {
		subject := "New chat message"
		if comm.Subject != nil {
			subject = *comm.Subject
		}
		payload := map[string]any{
			"to":      f.cfg.PrimaryInboxEmail,
			"subject": subject,
			"body":    comm.Body,
		}
		if err := f.post(ctx, f.cfg.EmailWebhookURL, "", payload); err != nil {
			warnings = append(warnings, "email forward failed: "+err.Error())
		}
	}

	if f.cfg.PushWebhookURL != "" {
		payload := map[string]any{
			"title": "New chat message",
			"body":  comm.Body,
		}
		if err := f.post(ctx, f.cfg.PushWebhookURL, "", payload); err != nil {
			warnings = append(warnings, "push forward failed: "+err.Error())
		}
	}

	for _, w := range warnings {
		logger.Log.Warn("chat message forward warning",
			zap.String("communication_id", comm.ID.String()),
			zap.String("warning", w))
	}
	return warnings
}

// ForwardToSlack posts the raw payload to the configured Slack webhook.
func (f *Forwarder) ForwardToSlack(ctx context.Context, payload json.RawMessage) error {
	if f.cfg.SlackWebhookURL == "" {
		return fmt.Errorf("slack webhook url is not configured")
	}
	return f.postRaw(ctx, f.cfg.SlackWebhookURL, "", payload)
}

func (f *Forwarder) post(ctx context.Context, url, bearerToken string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return f.postRaw(ctx, url, bearerToken, body)
}

func (f *Forwarder) postRaw(ctx context.Context, url, bearerToken string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// SetHTTPClient replaces the underlying HTTP client. Used by tests.
func (f *Forwarder) SetHTTPClient(client *http.Client) {
	f.client = client
}
