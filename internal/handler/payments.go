package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sacredflow/backend-go/pkg/logger"
)

// PaymentsLister fetches recent payments from Square.
type PaymentsLister interface {
	ListPayments(ctx context.Context, limit int) ([]json.RawMessage, error)
}

// PaymentsHandler exposes the Square payments pass-through listing.
type PaymentsHandler struct {
	lister PaymentsLister
}

// NewPaymentsHandler creates a PaymentsHandler. lister may be nil when Square
// is not configured.
func NewPaymentsHandler(lister PaymentsLister) *PaymentsHandler {
	return &PaymentsHandler{lister: lister}
}

// ListPayments returns recent Square payments as received from the API.
func (h *PaymentsHandler) ListPayments(c *gin.Context) {
	if h.lister == nil {
		respondError(c, http.StatusServiceUnavailable, "square client is not configured")
		return
	}

	limit, err := parseBoundedInt(c.Query("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		respondError(c, http.StatusBadRequest, "limit must be an integer between 1 and 500")
		return
	}

	payments, err := h.lister.ListPayments(c.Request.Context(), limit)
	if err != nil {
		logger.Log.Error("failed to list square payments", zap.Error(err))
		respondError(c, http.StatusBadGateway, "failed to fetch payments from Square")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": payments,
		"count":    len(payments),
	})
}
