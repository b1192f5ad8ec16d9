package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sacredflow/backend-go/internal/service"
	"github.com/sacredflow/backend-go/pkg/logger"
)

// signatureHeader is the HMAC-SHA1 signature Square attaches to deliveries.
const signatureHeader = "X-Square-Signature"

// IntakePipeline runs one webhook delivery through the intake sequence.
type IntakePipeline interface {
	Handle(ctx context.Context, rawBody []byte, requestURL, signatureHeader string) (*service.WebhookResult, error)
}

// WebhookHandler receives Square webhook deliveries.
type WebhookHandler struct {
	pipeline IntakePipeline
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(pipeline IntakePipeline) *WebhookHandler {
	return &WebhookHandler{pipeline: pipeline}
}

// HandleSquareWebhook processes one delivery. Accepted deliveries, including
// duplicates and ones that end in a non-processed status, return 202; the
// delivery's fate is in the body.
func (h *WebhookHandler) HandleSquareWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.Log.Warn("failed to read webhook body", zap.Error(err))
		respondError(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	result, err := h.pipeline.Handle(
		c.Request.Context(),
		body,
		notificationURL(c),
		c.GetHeader(signatureHeader),
	)
	switch {
	case errors.Is(err, service.ErrMalformedPayload):
		respondError(c, http.StatusBadRequest, "request body is not valid JSON")
		return
	case errors.Is(err, service.ErrMissingEventID):
		respondError(c, http.StatusUnprocessableEntity, "payload has no event id")
		return
	case err != nil:
		logger.Log.Error("webhook intake failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path))
		respondError(c, http.StatusInternalServerError, "failed to process webhook delivery")
		return
	}

	c.JSON(http.StatusAccepted, result)
}

// notificationURL reconstructs the public URL Square signed. The scheme comes
// from the proxy header when present, since the listener itself is plain HTTP
// behind TLS termination.
func notificationURL(c *gin.Context) string {
	scheme := c.GetHeader("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
}
