// Package repository provides database access for the SacredFlow entities.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sacredflow/backend-go/internal/db"
	"github.com/sacredflow/backend-go/internal/db/models"
)

// WebhookEventRepository defines operations for Square webhook event records.
// Events are created once and receive exactly one outcome update; they are
// never deleted.
type WebhookEventRepository interface {
	// WithTx returns a repository bound to the given transaction.
	WithTx(tx pgx.Tx) WebhookEventRepository

	// GetByEventID retrieves an event by its Square-assigned event id.
	GetByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error)

	// Insert persists a new event in the received state. A duplicate event id
	// surfaces as db.ErrDuplicateKey via the unique constraint.
	Insert(ctx context.Context, event *models.WebhookEvent) error

	// UpdateOutcome writes the terminal status, failure reason, and processed
	// timestamp back to the event row.
	UpdateOutcome(ctx context.Context, event *models.WebhookEvent) error
}

type webhookEventRepository struct {
	q db.Querier
}

// NewWebhookEventRepository creates a WebhookEventRepository over the pool.
func NewWebhookEventRepository(q db.Querier) WebhookEventRepository {
	return &webhookEventRepository{q: q}
}

func (r *webhookEventRepository) WithTx(tx pgx.Tx) WebhookEventRepository {
	return &webhookEventRepository{q: tx}
}

const webhookEventColumns = `
	id, event_id, event_type, location_id, signature_verified, status,
	failure_reason, payload, created_at, processed_at, updated_at`

func (r *webhookEventRepository) GetByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	query := `SELECT` + webhookEventColumns + `
		FROM square_webhook_events
		WHERE event_id = $1`

	event := &models.WebhookEvent{}
	err := r.q.QueryRow(ctx, query, eventID).Scan(
		&event.ID,
		&event.EventID,
		&event.EventType,
		&event.LocationID,
		&event.SignatureVerified,
		&event.Status,
		&event.FailureReason,
		&event.Payload,
		&event.CreatedAt,
		&event.ProcessedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, db.WrapError(err, "get webhook event by event id")
	}
	return event, nil
}

func (r *webhookEventRepository) Insert(ctx context.Context, event *models.WebhookEvent) error {
	query := `
		INSERT INTO square_webhook_events
		(id, event_id, event_type, location_id, signature_verified, status, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.q.Exec(ctx, query,
		event.ID,
		event.EventID,
		event.EventType,
		event.LocationID,
		event.SignatureVerified,
		event.Status,
		event.Payload,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return db.WrapError(err, "insert webhook event")
	}
	return nil
}

func (r *webhookEventRepository) UpdateOutcome(ctx context.Context, event *models.WebhookEvent) error {
	query := `
		UPDATE square_webhook_events
		SET status = $2, failure_reason = $3, processed_at = $4, updated_at = $5
		WHERE id = $1`

	cmdTag, err := r.q.Exec(ctx, query,
		event.ID,
		event.Status,
		event.FailureReason,
		event.ProcessedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return db.WrapError(err, "update webhook event outcome")
	}
	if cmdTag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "update webhook event outcome")
	}
	return nil
}
