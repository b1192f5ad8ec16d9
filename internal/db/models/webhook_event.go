// Package models contains the persisted entities for the SacredFlow backend.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Webhook event processing statuses. An event starts as received and ends in
// exactly one of the terminal states; there is no retry transition.
const (
	EventStatusReceived  = "received"
	EventStatusProcessed = "processed"
	EventStatusIgnored   = "ignored"
	EventStatusRejected  = "rejected"
	EventStatusFailed    = "failed"
)

// WebhookEvent records one webhook delivery from Square. The event_id column
// carries a unique constraint; that constraint, not the pre-insert existence
// check, is what guarantees at-most-once processing under concurrent delivery.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type WebhookEvent struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	EventID           string          `db:"event_id" json:"event_id"`
	EventType         string          `db:"event_type" json:"event_type"`
	LocationID        *string         `db:"location_id" json:"location_id,omitempty"`
	SignatureVerified bool            `db:"signature_verified" json:"signature_verified"`
	Status            string          `db:"status" json:"status"`
	FailureReason     *string         `db:"failure_reason" json:"failure_reason,omitempty"`
	Payload           json.RawMessage `db:"payload" json:"payload"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt       *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// NewWebhookEvent creates a WebhookEvent in the received state.
func NewWebhookEvent(eventID, eventType, locationID string, signatureVerified bool, payload json.RawMessage) *WebhookEvent {
	now := time.Now().UTC()
	ev := &WebhookEvent{
		ID:                uuid.New(),
		EventID:           eventID,
		EventType:         eventType,
		SignatureVerified: signatureVerified,
		Status:            EventStatusReceived,
		Payload:           payload,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if locationID != "" {
		ev.LocationID = &locationID
	}
	return ev
}

// SetOutcome applies the terminal status to the event. ProcessedAt is stamped
// only for processed and ignored outcomes.
func (e *WebhookEvent) SetOutcome(status, failureReason string) {
	e.Status = status
	e.UpdatedAt = time.Now().UTC()
	if failureReason != "" {
		e.FailureReason = &failureReason
	}
	if status == EventStatusProcessed || status == EventStatusIgnored {
		now := time.Now().UTC()
		e.ProcessedAt = &now
	}
}
