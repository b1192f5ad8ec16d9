package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sacredflow/backend-go/internal/db"
	"github.com/sacredflow/backend-go/internal/db/models"
)

// ProductRepository defines operations for internal products. The
// reconciliation pass only ever creates products; it never deletes or rebinds.
type ProductRepository interface {
	WithTx(tx pgx.Tx) ProductRepository

	// Insert persists a new product.
	Insert(ctx context.Context, product *models.Product) error
}

type productRepository struct {
	q db.Querier
}

// NewProductRepository creates a ProductRepository over the pool.
func NewProductRepository(q db.Querier) ProductRepository {
	return &productRepository{q: q}
}

func (r *productRepository) WithTx(tx pgx.Tx) ProductRepository {
	return &productRepository{q: tx}
}

func (r *productRepository) Insert(ctx context.Context, product *models.Product) error {
	// The attributes column is NOT NULL.
	if product.Attributes == nil {
		product.Attributes = map[string]any{}
	}

	query := `
		INSERT INTO products
		(id, name, description, price_cents, currency, square_catalog_object_id,
		 square_catalog_variation_id, is_active, attributes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.q.Exec(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.PriceCents,
		product.Currency,
		product.SquareCatalogObjectID,
		product.SquareCatalogVariationID,
		product.IsActive,
		product.Attributes,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return db.WrapError(err, "insert product")
	}
	return nil
}
