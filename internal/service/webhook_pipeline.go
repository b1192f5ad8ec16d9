// Package service implements the business logic behind the HTTP handlers:
// webhook intake, catalog reconciliation, and outbound forwarding.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sacredflow/backend-go/internal/db"
	"github.com/sacredflow/backend-go/internal/db/models"
	"github.com/sacredflow/backend-go/internal/db/repository"
	"github.com/sacredflow/backend-go/internal/metrics"
	"github.com/sacredflow/backend-go/pkg/logger"
)

// Intake validation errors. The handler maps these to client error responses;
// neither leaves a row behind.
var (
	ErrMalformedPayload = errors.New("malformed webhook payload")
	ErrMissingEventID   = errors.New("webhook payload missing event id")
)

// SignatureVerifier checks a webhook delivery signature against the raw body.
type SignatureVerifier interface {
	Verify(body []byte, requestURL, signature string) bool
}

// EventHandler processes one persisted webhook event inside the intake
// transaction and reports the terminal outcome. A returned error marks the
// event failed; it never aborts the transaction.
type EventHandler interface {
	Handle(ctx context.Context, tx pgx.Tx, event *models.WebhookEvent) (status, reason string, err error)
}

// Publisher emits a message about a processed event to the broker. Optional;
// a nil Publisher disables publishing.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// WebhookResult is the outcome of one webhook delivery.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type WebhookResult struct {
	EventID           string `json:"event_id"`
	Status            string `json:"status"`
	SignatureVerified bool   `json:"signature_verified"`
	FailureReason     string `json:"failure_reason,omitempty"`
	Duplicate         bool   `json:"duplicate,omitempty"`
}

// WebhookPipeline runs the intake sequence for Square webhook deliveries:
// parse, verify, dedup, persist, dispatch, record outcome. The insert and the
// outcome update commit in a single transaction, so no delivery is ever left
// in the received state.
type WebhookPipeline struct {
	events     repository.WebhookEventRepository
	txRunner   db.TxRunner
	verifier   SignatureVerifier
	payments   EventHandler
	publisher  Publisher
	routingKey string
	metrics    *metrics.Metrics
}

// NewWebhookPipeline wires the intake pipeline. publisher may be nil.
func NewWebhookPipeline(
	events repository.WebhookEventRepository,
	txRunner db.TxRunner,
	verifier SignatureVerifier,
	payments EventHandler,
	publisher Publisher,
	routingKey string,
	m *metrics.Metrics,
) *WebhookPipeline {
	return &WebhookPipeline{
		events:     events,
		txRunner:   txRunner,
		verifier:   verifier,
		payments:   payments,
		publisher:  publisher,
		routingKey: routingKey,
		metrics:    m,
	}
}

// webhookEnvelope is the minimal shape extracted from a delivery. Square sends
// snake_case keys; some older integrations send camelCase, so both are read.
type webhookEnvelope struct {
	EventID      string `json:"event_id"`
	EventIDCamel string `json:"eventId"`
	Type         string `json:"type"`
	LocationID   string `json:"location_id"`
}

// Handle runs one delivery through the pipeline. Validation failures return
// ErrMalformedPayload or ErrMissingEventID without persisting anything; every
// other delivery is persisted with a terminal status before Handle returns.
func (p *WebhookPipeline) Handle(ctx context.Context, rawBody []byte, requestURL, signatureHeader string) (*WebhookResult, error) {
	start := time.Now()

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		logger.Log.Warn("rejecting unparseable webhook payload", zap.Error(err))
		return nil, ErrMalformedPayload
	}

	eventID := envelope.EventID
	if eventID == "" {
		eventID = envelope.EventIDCamel
	}
	if eventID == "" {
		logger.Log.Warn("rejecting webhook payload without event id",
			zap.String("event_type", envelope.Type))
		return nil, ErrMissingEventID
	}

	verified := p.verifier.Verify(rawBody, requestURL, signatureHeader)

	// Fast path for redeliveries. The unique constraint below still covers
	// the race where two deliveries pass this check concurrently.
	existing, err := p.events.GetByEventID(ctx, eventID)
	if err != nil && !db.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		logger.Log.Info("duplicate webhook delivery",
			zap.String("event_id", eventID),
			zap.String("status", existing.Status))
		p.metrics.RecordWebhookEvent(existing.Status, true, time.Since(start))
		return duplicateResult(existing), nil
	}

	event := models.NewWebhookEvent(eventID, envelope.Type, envelope.LocationID, verified, rawBody)

	err = p.txRunner.RunInTx(ctx, func(tx pgx.Tx) error {
		repo := p.events.WithTx(tx)
		if insertErr := repo.Insert(ctx, event); insertErr != nil {
			return insertErr
		}

		status, reason := p.process(ctx, tx, event)
		event.SetOutcome(status, reason)
		return repo.UpdateOutcome(ctx, event)
	})
	if db.IsDuplicateKey(err) {
		// Lost the insert race to a concurrent delivery of the same event.
		winner, getErr := p.events.GetByEventID(ctx, eventID)
		if getErr != nil {
			return nil, getErr
		}
		logger.Log.Info("concurrent duplicate webhook delivery",
			zap.String("event_id", eventID),
			zap.String("status", winner.Status))
		p.metrics.RecordWebhookEvent(winner.Status, true, time.Since(start))
		return duplicateResult(winner), nil
	}
	if err != nil {
		return nil, err
	}

	if event.Status == models.EventStatusProcessed {
		p.publishProcessed(ctx, event)
	}

	logger.Log.Info("webhook delivery handled",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.String("status", event.Status),
		zap.Bool("signature_verified", event.SignatureVerified))
	p.metrics.RecordWebhookEvent(event.Status, false, time.Since(start))

	result := &WebhookResult{
		EventID:           event.EventID,
		Status:            event.Status,
		SignatureVerified: event.SignatureVerified,
	}
	if event.FailureReason != nil {
		result.FailureReason = *event.FailureReason
	}
	return result, nil
}

// process decides the terminal outcome for an inserted event. It never
// returns an error to the transaction; handler failures become the failed
// status so the row always commits.
func (p *WebhookPipeline) process(ctx context.Context, tx pgx.Tx, event *models.WebhookEvent) (status, reason string) {
	if !event.SignatureVerified {
		return models.EventStatusRejected, "signature verification failed"
	}

	if !strings.HasPrefix(event.EventType, "payment.") {
		return models.EventStatusIgnored, "unhandled event type: " + event.EventType
	}

	status, reason, err := p.payments.Handle(ctx, tx, event)
	if err != nil {
		logger.Log.Error("payment webhook handler failed",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType),
			zap.Error(err))
		return models.EventStatusFailed, err.Error()
	}
	return status, reason
}

func (p *WebhookPipeline) publishProcessed(ctx context.Context, event *models.WebhookEvent) {
	if p.publisher == nil {
		return
	}
	body, err := json.Marshal(map[string]any{
		"event_id":   event.EventID,
		"event_type": event.EventType,
		"status":     event.Status,
	})
	if err != nil {
		return
	}
	if err := p.publisher.Publish(ctx, p.routingKey, body); err != nil {
		// Publishing is best effort; the event is already committed.
		logger.Log.Warn("failed to publish processed event",
			zap.String("event_id", event.EventID),
			zap.Error(err))
	}
}

func duplicateResult(event *models.WebhookEvent) *WebhookResult {
	result := &WebhookResult{
		EventID:           event.EventID,
		Status:            event.Status,
		SignatureVerified: event.SignatureVerified,
		Duplicate:         true,
	}
	if event.FailureReason != nil {
		result.FailureReason = *event.FailureReason
	}
	return result
}
