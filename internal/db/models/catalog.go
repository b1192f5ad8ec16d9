package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CatalogItem is a local snapshot of a Square catalog item. Items are never
// hard-deleted: an item absent from a later full listing is soft-deleted and
// keeps its raw payload and history. Version comes from Square and only
// increases; local writes never fabricate one.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type CatalogItem struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	SquareID    string          `db:"square_id" json:"square_id"`
	VariationID *string         `db:"variation_id" json:"variation_id,omitempty"`
	Name        string          `db:"name" json:"name"`
	Description *string         `db:"description" json:"description,omitempty"`
	PriceCents  *int64          `db:"price_cents" json:"price_cents,omitempty"`
	Currency    *string         `db:"currency" json:"currency,omitempty"`
	IsDeleted   bool            `db:"is_deleted" json:"is_deleted"`
	Version     int64           `db:"version" json:"version"`
	RawPayload  json.RawMessage `db:"raw_payload" json:"raw_payload"`
	ProductID   *uuid.UUID      `db:"product_id" json:"product_id,omitempty"`
	SyncedAt    time.Time       `db:"synced_at" json:"synced_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Product is the internal sellable entity, bound at most once to the catalog
// item that originated it. A binding is never replaced once set.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Product struct {
	ID                       uuid.UUID      `db:"id" json:"id"`
	Name                     string         `db:"name" json:"name"`
	Description              *string        `db:"description" json:"description,omitempty"`
	PriceCents               int64          `db:"price_cents" json:"price_cents"`
	Currency                 string         `db:"currency" json:"currency"`
	SquareCatalogObjectID    *string        `db:"square_catalog_object_id" json:"square_catalog_object_id,omitempty"`
	SquareCatalogVariationID *string        `db:"square_catalog_variation_id" json:"square_catalog_variation_id,omitempty"`
	IsActive                 bool           `db:"is_active" json:"is_active"`
	Attributes               map[string]any `db:"attributes" json:"attributes"`
	CreatedAt                time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time      `db:"updated_at" json:"updated_at"`
}
