package square

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sacredflow/backend-go/pkg/logger"
)

// HealthStatus is a lightweight snapshot of Square connectivity.
type HealthStatus struct {
	Status      string `json:"status"`
	Environment string `json:"environment,omitempty"`
	Locations   string `json:"locations,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Healthcheck probes the Square locations endpoint. A nil client (missing
// credentials) yields a degraded status rather than an error; the request
// must not fail because Square is unconfigured.
func Healthcheck(ctx context.Context, client *Client) HealthStatus {
	if client == nil {
		return HealthStatus{
			Status: "degraded",
			Reason: ErrNotConfigured.Error(),
		}
	}

	locations, err := client.ListLocations(ctx)
	if err != nil {
		logger.Log.Error("Square healthcheck failed", zap.Error(err))
		return HealthStatus{
			Status: "error",
			Reason: err.Error(),
		}
	}

	ids := make([]string, 0, len(locations))
	for _, loc := range locations {
		if loc.ID != "" {
			ids = append(ids, loc.ID)
		}
	}

	return HealthStatus{
		Status:      "ok",
		Environment: client.Environment(),
		Locations:   strings.Join(ids, ","),
	}
}
