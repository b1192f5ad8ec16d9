package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sacredflow/backend-go/internal/db"
	"github.com/sacredflow/backend-go/internal/db/models"
	"github.com/sacredflow/backend-go/internal/db/repository"
	"github.com/sacredflow/backend-go/pkg/logger"
)

// MapSquarePaymentStatus translates Square's payment status vocabulary into
// the local one. Unrecognized values map to pending rather than failing the
// event, so new provider statuses degrade gracefully.
func MapSquarePaymentStatus(squareStatus string) string {
	switch squareStatus {
	case "COMPLETED":
		return models.PaymentStatusCompleted
	case "APPROVED", "AUTHORIZED", "PENDING":
		return models.PaymentStatusPending
	case "FAILED", "CANCELED", "CANCELED_BY_CUSTOMER":
		return models.PaymentStatusFailed
	case "REFUNDED":
		return models.PaymentStatusRefunded
	default:
		return models.PaymentStatusPending
	}
}

// PaymentEventHandler applies payment.* webhook events to the payments table.
type PaymentEventHandler struct {
	payments repository.PaymentRepository
}

// NewPaymentEventHandler creates a PaymentEventHandler.
func NewPaymentEventHandler(payments repository.PaymentRepository) *PaymentEventHandler {
	return &PaymentEventHandler{payments: payments}
}

// paymentEventData is the slice of a payment.* payload the handler needs.
type paymentEventData struct {
	Data struct {
		Object struct {
			Payment struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"payment"`
		} `json:"object"`
	} `json:"data"`
}

// Handle looks up the referenced payment, maps the provider status, and
// records the raw payload in the payment's webhook history. Events for
// payments this system has never seen are ignored, not failed.
func (h *PaymentEventHandler) Handle(ctx context.Context, tx pgx.Tx, event *models.WebhookEvent) (string, string, error) {
	var payload paymentEventData
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return "", "", err
	}

	squarePaymentID := payload.Data.Object.Payment.ID
	if squarePaymentID == "" {
		return models.EventStatusIgnored, "payment event without payment id", nil
	}

	repo := h.payments.WithTx(tx)
	payment, err := repo.GetBySquarePaymentID(ctx, squarePaymentID)
	if db.IsNotFound(err) {
		logger.Log.Info("ignoring webhook for unknown payment",
			zap.String("event_id", event.EventID),
			zap.String("square_payment_id", squarePaymentID))
		return models.EventStatusIgnored, "no payment found for id " + squarePaymentID, nil
	}
	if err != nil {
		return "", "", err
	}

	payment.Status = MapSquarePaymentStatus(payload.Data.Object.Payment.Status)

	var rawPayload any
	if err := json.Unmarshal(event.Payload, &rawPayload); err == nil {
		payment.AppendWebhookHistory(time.Now(), rawPayload)
	}

	if err := repo.Update(ctx, payment); err != nil {
		return "", "", err
	}

	logger.Log.Info("payment updated from webhook",
		zap.String("event_id", event.EventID),
		zap.String("square_payment_id", squarePaymentID),
		zap.String("status", payment.Status))
	return models.EventStatusProcessed, "", nil
}
