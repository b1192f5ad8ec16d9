package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment statuses. Amounts are always integer minor-currency units.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment tracks a Square payment for a subscription, bundle, or one-time
// purchase. ExtraData accumulates the webhook history and the last raw
// provider response.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Payment struct {
	ID              uuid.UUID      `db:"id" json:"id"`
	SquarePaymentID *string        `db:"square_payment_id" json:"square_payment_id,omitempty"`
	CustomerEmail   *string        `db:"customer_email" json:"customer_email,omitempty"`
	PlanType        string         `db:"plan_type" json:"plan_type"`
	Amount          int64          `db:"amount" json:"amount"`
	Status          string         `db:"status" json:"status"`
	ExtraData       map[string]any `db:"extra_data" json:"extra_data"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// AppendWebhookHistory records one webhook application against this payment:
// an entry in extra_data["webhook_history"] plus an overwrite of
// extra_data["last_square_response"].
func (p *Payment) AppendWebhookHistory(at time.Time, payload any) {
	if p.ExtraData == nil {
		p.ExtraData = map[string]any{}
	}

	history, _ := p.ExtraData["webhook_history"].([]any)
	history = append(history, map[string]any{
		"at":      at.UTC().Format(time.RFC3339),
		"payload": payload,
	})
	p.ExtraData["webhook_history"] = history
	p.ExtraData["last_square_response"] = payload
}
