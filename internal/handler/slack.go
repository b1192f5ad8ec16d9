package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sacredflow/backend-go/pkg/logger"
)

// SlackForwarder posts a raw payload to the configured Slack webhook.
type SlackForwarder interface {
	ForwardToSlack(ctx context.Context, payload json.RawMessage) error
}

// SlackHandler relays notification payloads to Slack.
type SlackHandler struct {
	forwarder SlackForwarder
}

// NewSlackHandler creates a SlackHandler.
func NewSlackHandler(forwarder SlackForwarder) *SlackHandler {
	return &SlackHandler{forwarder: forwarder}
}

// Forward passes the request body to the Slack webhook as-is.
func (h *SlackHandler) Forward(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read request body")
		return
	}
	if !json.Valid(body) {
		respondError(c, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	if err := h.forwarder.ForwardToSlack(c.Request.Context(), body); err != nil {
		logger.Log.Error("slack forward failed", zap.Error(err))
		respondError(c, http.StatusBadGateway, "failed to forward payload to Slack")
		return
	}

	c.JSON(http.StatusOK, gin.H{"forwarded": true})
}
