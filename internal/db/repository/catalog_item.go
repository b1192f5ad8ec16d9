package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sacredflow/backend-go/internal/db"
	"github.com/sacredflow/backend-go/internal/db/models"
)

// CatalogItemRepository defines operations for synchronized Square catalog
// items. Items are soft-deleted only; ListAll feeds the reconciliation pass
// and assumes the full catalog fits in memory.
type CatalogItemRepository interface {
	WithTx(tx pgx.Tx) CatalogItemRepository

	// ListAll returns every catalog item, including soft-deleted ones.
	ListAll(ctx context.Context) ([]*models.CatalogItem, error)

	// List returns catalog items ordered by most recently updated first.
	List(ctx context.Context, limit, offset int, includeDeleted bool) ([]*models.CatalogItem, error)

	// Insert persists a new catalog item snapshot.
	Insert(ctx context.Context, item *models.CatalogItem) error

	// Update persists every tracked field of an existing snapshot.
	Update(ctx context.Context, item *models.CatalogItem) error
}

type catalogItemRepository struct {
	q db.Querier
}

// NewCatalogItemRepository creates a CatalogItemRepository over the pool.
func NewCatalogItemRepository(q db.Querier) CatalogItemRepository {
	return &catalogItemRepository{q: q}
}

func (r *catalogItemRepository) WithTx(tx pgx.Tx) CatalogItemRepository {
	return &catalogItemRepository{q: tx}
}

const catalogItemColumns = `
	id, square_id, variation_id, name, description, price_cents, currency,
	is_deleted, version, raw_payload, product_id, synced_at, updated_at`

func (r *catalogItemRepository) ListAll(ctx context.Context) ([]*models.CatalogItem, error) {
	query := `SELECT` + catalogItemColumns + ` FROM square_catalog_items`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, db.WrapError(err, "list all catalog items")
	}
	defer rows.Close()

	return scanCatalogItems(rows)
}

func (r *catalogItemRepository) List(ctx context.Context, limit, offset int, includeDeleted bool) ([]*models.CatalogItem, error) {
	query := `SELECT` + catalogItemColumns + ` FROM square_catalog_items`
	if !includeDeleted {
		query += ` WHERE NOT is_deleted`
	}
	query += ` ORDER BY updated_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, db.WrapError(err, "list catalog items")
	}
	defer rows.Close()

	return scanCatalogItems(rows)
}

func (r *catalogItemRepository) Insert(ctx context.Context, item *models.CatalogItem) error {
	query := `
		INSERT INTO square_catalog_items
		(id, square_id, variation_id, name, description, price_cents, currency,
		 is_deleted, version, raw_payload, product_id, synced_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.q.Exec(ctx, query,
		item.ID,
		item.SquareID,
		item.VariationID,
		item.Name,
		item.Description,
		item.PriceCents,
		item.Currency,
		item.IsDeleted,
		item.Version,
		item.RawPayload,
		item.ProductID,
		item.SyncedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return db.WrapError(err, "insert catalog item")
	}
	return nil
}

func (r *catalogItemRepository) Update(ctx context.Context, item *models.CatalogItem) error {
	query := `
		UPDATE square_catalog_items
		SET variation_id = $2, name = $3, description = $4, price_cents = $5,
		    currency = $6, is_deleted = $7, version = $8, raw_payload = $9,
		    product_id = $10, synced_at = $11, updated_at = NOW()
		WHERE id = $1`

	cmdTag, err := r.q.Exec(ctx, query,
		item.ID,
		item.VariationID,
		item.Name,
		item.Description,
		item.PriceCents,
		item.Currency,
		item.IsDeleted,
		item.Version,
		item.RawPayload,
		item.ProductID,
		item.SyncedAt,
	)
	if err != nil {
		return db.WrapError(err, "update catalog item")
	}
	if cmdTag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "update catalog item")
	}
	return nil
}

func scanCatalogItems(rows pgx.Rows) ([]*models.CatalogItem, error) {
	var items []*models.CatalogItem

	for rows.Next() {
		item := &models.CatalogItem{}
		err := rows.Scan(
			&item.ID,
			&item.SquareID,
			&item.VariationID,
			&item.Name,
			&item.Description,
			&item.PriceCents,
			&item.Currency,
			&item.IsDeleted,
			&item.Version,
			&item.RawPayload,
			&item.ProductID,
			&item.SyncedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog items: %w", err)
	}
	return items, nil
}
