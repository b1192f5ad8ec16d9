package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sacredflow/backend-go/internal/db"
	"github.com/sacredflow/backend-go/internal/db/models"
)

// PaymentRepository defines operations for local payment records. The webhook
// pipeline only ever mutates existing records; creation happens on the
// payment-creation path, which is outside this repository's callers.
type PaymentRepository interface {
	WithTx(tx pgx.Tx) PaymentRepository

	// GetBySquarePaymentID retrieves a payment by Square's payment identifier.
	GetBySquarePaymentID(ctx context.Context, squarePaymentID string) (*models.Payment, error)

	// Update persists status and extra_data changes for an existing payment.
	Update(ctx context.Context, payment *models.Payment) error
}

type paymentRepository struct {
	q db.Querier
}

// NewPaymentRepository creates a PaymentRepository over the pool.
func NewPaymentRepository(q db.Querier) PaymentRepository {
	return &paymentRepository{q: q}
}

func (r *paymentRepository) WithTx(tx pgx.Tx) PaymentRepository {
	return &paymentRepository{q: tx}
}

func (r *paymentRepository) GetBySquarePaymentID(ctx context.Context, squarePaymentID string) (*models.Payment, error) {
	query := `
		SELECT id, square_payment_id, customer_email, plan_type, amount, status,
		       extra_data, created_at, updated_at
		FROM payments
		WHERE square_payment_id = $1`

	payment := &models.Payment{}
	err := r.q.QueryRow(ctx, query, squarePaymentID).Scan(
		&payment.ID,
		&payment.SquarePaymentID,
		&payment.CustomerEmail,
		&payment.PlanType,
		&payment.Amount,
		&payment.Status,
		&payment.ExtraData,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, db.WrapError(err, "get payment by square payment id")
	}
	return payment, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	// The extra_data column is NOT NULL.
	if payment.ExtraData == nil {
		payment.ExtraData = map[string]any{}
	}

	query := `
		UPDATE payments
		SET status = $2, extra_data = $3, updated_at = NOW()
		WHERE id = $1`

	cmdTag, err := r.q.Exec(ctx, query, payment.ID, payment.Status, payment.ExtraData)
	if err != nil {
		return db.WrapError(err, "update payment")
	}
	if cmdTag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "update payment")
	}
	return nil
}
