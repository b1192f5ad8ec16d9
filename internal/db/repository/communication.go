package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sacredflow/backend-go/internal/db"
	"github.com/sacredflow/backend-go/internal/db/models"
)

// CommunicationFilters narrows a communications listing. Nil fields are
// not applied.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type CommunicationFilters struct {
	Channel   *string
	Direction *string
	IsRead    *bool
	UserID    *string
	Limit     int
	Offset    int
}

// CommunicationRepository defines operations for communication records.
type CommunicationRepository interface {
	Create(ctx context.Context, comm *models.Communication) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Communication, error)
	List(ctx context.Context, filters *CommunicationFilters) ([]*models.Communication, error)
	Update(ctx context.Context, comm *models.Communication) error
	UnreadCount(ctx context.Context) (int, error)
}

type communicationRepository struct {
	q db.Querier
}

// NewCommunicationRepository creates a CommunicationRepository over the pool.
func NewCommunicationRepository(q db.Querier) CommunicationRepository {
	return &communicationRepository{q: q}
}

const communicationColumns = `
	id, channel, direction, status, subject, body, user_id, contact_email,
	contact_name, external_reference, meta, attachments, is_read, created_at, updated_at`

func (r *communicationRepository) Create(ctx context.Context, comm *models.Communication) error {
	// The meta and attachments columns are NOT NULL.
	if comm.Meta == nil {
		comm.Meta = map[string]any{}
	}
	if comm.Attachments == nil {
		comm.Attachments = []any{}
	}

	query := `
		INSERT INTO communications
		(id, channel, direction, status, subject, body, user_id, contact_email,
		 contact_name, external_reference, meta, attachments, is_read, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.q.Exec(ctx, query,
		comm.ID,
		comm.Channel,
		comm.Direction,
		comm.Status,
		comm.Subject,
		comm.Body,
		comm.UserID,
		comm.ContactEmail,
		comm.ContactName,
		comm.ExternalReference,
		comm.Meta,
		comm.Attachments,
		comm.IsRead,
		comm.CreatedAt,
		comm.UpdatedAt,
	)
	if err != nil {
		return db.WrapError(err, "create communication")
	}
	return nil
}

func (r *communicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Communication, error) {
	query := `SELECT` + communicationColumns + ` FROM communications WHERE id = $1`

	comm := &models.Communication{}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&comm.ID,
		&comm.Channel,
		&comm.Direction,
		&comm.Status,
		&comm.Subject,
		&comm.Body,
		&comm.UserID,
		&comm.ContactEmail,
		&comm.ContactName,
		&comm.ExternalReference,
		&comm.Meta,
		&comm.Attachments,
		&comm.IsRead,
		&comm.CreatedAt,
		&comm.UpdatedAt,
	)
	if err != nil {
		return nil, db.WrapError(err, "get communication by id")
	}
	return comm, nil
}

func (r *communicationRepository) List(ctx context.Context, filters *CommunicationFilters) ([]*models.Communication, error) {
	var (
		conditions []string
		args       []any
	)

	addFilter := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filters.Channel != nil {
		addFilter("channel", *filters.Channel)
	}
	if filters.Direction != nil {
		addFilter("direction", *filters.Direction)
	}
	if filters.IsRead != nil {
		addFilter("is_read", *filters.IsRead)
	}
	if filters.UserID != nil {
		addFilter("user_id", *filters.UserID)
	}

	query := `SELECT` + communicationColumns + ` FROM communications`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	args = append(args, filters.Limit, filters.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, db.WrapError(err, "list communications")
	}
	defer rows.Close()

	return scanCommunications(rows)
}

func (r *communicationRepository) Update(ctx context.Context, comm *models.Communication) error {
	query := `
		UPDATE communications
		SET status = $2, is_read = $3, meta = $4, updated_at = NOW()
		WHERE id = $1`

	cmdTag, err := r.q.Exec(ctx, query, comm.ID, comm.Status, comm.IsRead, comm.Meta)
	if err != nil {
		return db.WrapError(err, "update communication")
	}
	if cmdTag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "update communication")
	}
	return nil
}

func (r *communicationRepository) UnreadCount(ctx context.Context) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM communications WHERE NOT is_read`).Scan(&count)
	if err != nil {
		return 0, db.WrapError(err, "count unread communications")
	}
	return count, nil
}

func scanCommunications(rows pgx.Rows) ([]*models.Communication, error) {
	var comms []*models.Communication

	for rows.Next() {
		comm := &models.Communication{}
		err := rows.Scan(
			&comm.ID,
			&comm.Channel,
			&comm.Direction,
			&comm.Status,
			&comm.Subject,
			&comm.Body,
			&comm.UserID,
			&comm.ContactEmail,
			&comm.ContactName,
			&comm.ExternalReference,
			&comm.Meta,
			&comm.Attachments,
			&comm.IsRead,
			&comm.CreatedAt,
			&comm.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan communication: %w", err)
		}
		comms = append(comms, comm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate communications: %w", err)
	}
	return comms, nil
}
