package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sacredflow/backend-go/internal/db"
	"github.com/sacredflow/backend-go/internal/db/models"
	"github.com/sacredflow/backend-go/internal/db/repository"
	"github.com/sacredflow/backend-go/internal/metrics"
	"github.com/sacredflow/backend-go/internal/square"
	"github.com/sacredflow/backend-go/pkg/logger"
)

// ErrSyncInProgress is returned when a sync pass is already running.
var ErrSyncInProgress = errors.New("catalog sync already in progress")

// CatalogLister is the slice of the Square client the sync service uses.
type CatalogLister interface {
	ListCatalog(ctx context.Context, types string) ([]square.CatalogObject, error)
	Environment() string
}

// SyncStats summarizes one catalog sync pass. Errors carries the remote
// listing failure, if any; callers must check it even on an accepted
// response.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type SyncStats struct {
	Processed   int      `json:"processed"`
	Created     int      `json:"created"`
	Updated     int      `json:"updated"`
	Deactivated int      `json:"deactivated"`
	Errors      []string `json:"errors"`
	Environment string   `json:"environment"`
}

// CatalogSyncService reconciles the local catalog snapshot with Square. Each
// pass fetches the full remote listing, upserts changed items, and
// soft-deletes items that disappeared from the listing. Every write of a pass
// lands in a single transaction; a failed listing yields zero stats with the
// error text instead of partial work. Only one pass runs at a time;
// overlapping requests are refused rather than queued.
type CatalogSyncService struct {
	lister   CatalogLister
	items    repository.CatalogItemRepository
	products repository.ProductRepository
	txRunner db.TxRunner
	metrics  *metrics.Metrics

	mu sync.Mutex
}

// NewCatalogSyncService creates a CatalogSyncService. lister may be nil when
// Square is not configured.
func NewCatalogSyncService(
	lister CatalogLister,
	items repository.CatalogItemRepository,
	products repository.ProductRepository,
	txRunner db.TxRunner,
	m *metrics.Metrics,
) *CatalogSyncService {
	return &CatalogSyncService{
		lister:   lister,
		items:    items,
		products: products,
		txRunner: txRunner,
		metrics:  m,
	}
}

// Sync runs one reconciliation pass. Remote listing failures (including a
// missing Square configuration) come back as zero stats with the error text
// in Errors; database failures roll the whole pass back and return an error.
func (s *CatalogSyncService) Sync(ctx context.Context) (*SyncStats, error) {
	if s.lister == nil {
		return &SyncStats{Errors: []string{square.ErrNotConfigured.Error()}}, nil
	}
	if !s.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.mu.Unlock()

	start := time.Now()
	stats := &SyncStats{Environment: s.lister.Environment(), Errors: []string{}}

	objects, err := s.lister.ListCatalog(ctx, square.ObjectTypeItem+","+square.ObjectTypeItemVariation)
	if err != nil {
		logger.Log.Error("catalog listing failed", zap.Error(err))
		s.metrics.RecordCatalogSync("error", time.Since(start))
		return &SyncStats{
			Errors:      []string{err.Error()},
			Environment: stats.Environment,
		}, nil
	}

	err = s.txRunner.RunInTx(ctx, func(tx pgx.Tx) error {
		return s.reconcile(ctx, tx, objects, stats)
	})
	if err != nil {
		s.metrics.RecordCatalogSync("error", time.Since(start))
		return nil, err
	}

	logger.Log.Info("catalog sync finished",
		zap.String("environment", stats.Environment),
		zap.Int("processed", stats.Processed),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("deactivated", stats.Deactivated))
	s.metrics.RecordCatalogSync("ok", time.Since(start))
	return stats, nil
}

// reconcile applies the remote listing inside one transaction. Any failure
// aborts the pass; there is no per-record error isolation.
func (s *CatalogSyncService) reconcile(ctx context.Context, tx pgx.Tx, objects []square.CatalogObject, stats *SyncStats) error {
	items := s.items.WithTx(tx)
	products := s.products.WithTx(tx)

	existing, err := items.ListAll(ctx)
	if err != nil {
		return err
	}
	bySquareID := make(map[string]*models.CatalogItem, len(existing))
	for _, item := range existing {
		bySquareID[item.SquareID] = item
	}

	seen := make(map[string]bool, len(objects))
	for i := range objects {
		obj := &objects[i]
		if obj.Type != square.ObjectTypeItem || obj.IsDeleted {
			continue
		}
		stats.Processed++
		seen[obj.ID] = true

		if err := s.applyObject(ctx, items, products, obj, bySquareID[obj.ID], stats); err != nil {
			return err
		}
	}

	// Anything we know locally but the full listing no longer returns has
	// been removed upstream. The raw payload is kept as history.
	for _, item := range existing {
		if seen[item.SquareID] || item.IsDeleted {
			continue
		}
		item.IsDeleted = true
		item.SyncedAt = time.Now().UTC()
		if err := items.Update(ctx, item); err != nil {
			return err
		}
		stats.Deactivated++
	}

	return nil
}

// applyObject upserts one remote ITEM into the local snapshot.
func (s *CatalogSyncService) applyObject(
	ctx context.Context,
	items repository.CatalogItemRepository,
	products repository.ProductRepository,
	obj *square.CatalogObject,
	local *models.CatalogItem,
	stats *SyncStats,
) error {
	name, description, variationID, priceCents, currency := flattenItem(obj)

	if local == nil {
		now := time.Now().UTC()
		item := &models.CatalogItem{
			ID:          uuid.New(),
			SquareID:    obj.ID,
			VariationID: variationID,
			Name:        name,
			Description: description,
			PriceCents:  priceCents,
			Currency:    currency,
			Version:     obj.Version,
			RawPayload:  obj.Raw,
			SyncedAt:    now,
			UpdatedAt:   now,
		}
		if err := bindProduct(ctx, products, item); err != nil {
			return err
		}
		if err := items.Insert(ctx, item); err != nil {
			return err
		}
		stats.Created++
		return nil
	}

	changed := local.Name != name ||
		!equalStringPtr(local.Description, description) ||
		!equalStringPtr(local.VariationID, variationID) ||
		!equalInt64Ptr(local.PriceCents, priceCents) ||
		!equalStringPtr(local.Currency, currency) ||
		local.Version != obj.Version ||
		local.IsDeleted ||
		!bytes.Equal(local.RawPayload, obj.Raw)

	if local.ProductID == nil {
		if err := bindProduct(ctx, products, local); err != nil {
			return err
		}
		changed = true
	}

	if !changed {
		return nil
	}

	local.Name = name
	local.Description = description
	local.VariationID = variationID
	local.PriceCents = priceCents
	local.Currency = currency
	local.Version = obj.Version
	local.RawPayload = obj.Raw
	local.IsDeleted = false
	local.SyncedAt = time.Now().UTC()

	if err := items.Update(ctx, local); err != nil {
		return err
	}
	stats.Updated++
	return nil
}

// bindProduct creates the internal product for an unbound catalog item. The
// binding is set exactly once; later syncs update the snapshot but never
// rebind.
func bindProduct(ctx context.Context, products repository.ProductRepository, item *models.CatalogItem) error {
	now := time.Now().UTC()
	product := &models.Product{
		ID:                    uuid.New(),
		Name:                  item.Name,
		Description:           item.Description,
		Currency:              "USD",
		SquareCatalogObjectID: &item.SquareID,
		IsActive:              true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if item.PriceCents != nil {
		product.PriceCents = *item.PriceCents
	}
	if item.Currency != nil {
		product.Currency = *item.Currency
	}
	if item.VariationID != nil {
		product.SquareCatalogVariationID = item.VariationID
	}

	if err := products.Insert(ctx, product); err != nil {
		return err
	}
	item.ProductID = &product.ID
	return nil
}

// flattenItem extracts the tracked fields from an ITEM object. Pricing comes
// from the first variation only; multi-variation pricing is out of scope.
func flattenItem(obj *square.CatalogObject) (name string, description, variationID *string, priceCents *int64, currency *string) {
	if obj.ItemData == nil {
		return "", nil, nil, nil, nil
	}

	name = obj.ItemData.Name
	if obj.ItemData.Description != "" {
		d := obj.ItemData.Description
		description = &d
	}

	if len(obj.ItemData.Variations) == 0 {
		return name, description, nil, nil, nil
	}
	first := obj.ItemData.Variations[0]
	if first.ID != "" {
		id := first.ID
		variationID = &id
	}
	if first.ItemVariationData != nil && first.ItemVariationData.PriceMoney != nil {
		amount := first.ItemVariationData.PriceMoney.Amount
		priceCents = &amount
		if first.ItemVariationData.PriceMoney.Currency != "" {
			c := first.ItemVariationData.PriceMoney.Currency
			currency = &c
		}
	}
	return name, description, variationID, priceCents, currency
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
