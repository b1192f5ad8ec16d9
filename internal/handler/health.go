package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sacredflow/backend-go/internal/square"
)

const dbPingTimeout = 2 * time.Second

// HealthHandler reports service, database, and Square connectivity. The
// endpoint always answers 200; degraded dependencies show up in the body.
type HealthHandler struct {
	pool   *pgxpool.Pool
	square *square.Client
}

// NewHealthHandler creates a HealthHandler. square may be nil when no
// credentials are configured.
func NewHealthHandler(pool *pgxpool.Pool, squareClient *square.Client) *HealthHandler {
	return &HealthHandler{pool: pool, square: squareClient}
}

// Check reports the health snapshot.
func (h *HealthHandler) Check(c *gin.Context) {
	status := "ok"

	dbStatus := "ok"
	ctx, cancel := context.WithTimeout(c.Request.Context(), dbPingTimeout)
	defer cancel()
	if err := h.pool.Ping(ctx); err != nil {
		dbStatus = "error: " + err.Error()
		status = "degraded"
	}

	squareStatus := square.Healthcheck(c.Request.Context(), h.square)
	if squareStatus.Status != "ok" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"database": dbStatus,
		"square":   squareStatus,
		"time":     time.Now().UTC(),
	})
}
