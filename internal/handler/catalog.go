package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sacredflow/backend-go/internal/db/repository"
	"github.com/sacredflow/backend-go/internal/service"
	"github.com/sacredflow/backend-go/pkg/logger"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// CatalogSyncer runs one catalog reconciliation pass.
type CatalogSyncer interface {
	Sync(ctx context.Context) (*service.SyncStats, error)
}

// CatalogHandler exposes catalog sync and listing endpoints.
type CatalogHandler struct {
	syncer CatalogSyncer
	items  repository.CatalogItemRepository
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(syncer CatalogSyncer, items repository.CatalogItemRepository) *CatalogHandler {
	return &CatalogHandler{syncer: syncer, items: items}
}

// TriggerSync runs a reconciliation pass and returns its stats.
func (h *CatalogHandler) TriggerSync(c *gin.Context) {
	stats, err := h.syncer.Sync(c.Request.Context())
	if errors.Is(err, service.ErrSyncInProgress) {
		respondError(c, http.StatusConflict, "a catalog sync is already running")
		return
	}
	if err != nil {
		logger.Log.Error("catalog sync failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "catalog sync failed: "+err.Error())
		return
	}

	c.JSON(http.StatusAccepted, stats)
}

// ListItems returns the local catalog snapshot, most recently updated first.
func (h *CatalogHandler) ListItems(c *gin.Context) {
	limit, err := parseBoundedInt(c.Query("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		respondError(c, http.StatusBadRequest, "limit must be an integer between 1 and 500")
		return
	}
	offset, err := parseBoundedInt(c.Query("offset"), 0, 0, 1<<30)
	if err != nil {
		respondError(c, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	includeDeleted := c.Query("includeDeleted") == "true"

	items, err := h.items.List(c.Request.Context(), limit, offset, includeDeleted)
	if err != nil {
		logger.Log.Error("failed to list catalog items", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to list catalog items")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func parseBoundedInt(raw string, def, min, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, errors.New("out of range")
	}
	return v, nil
}
