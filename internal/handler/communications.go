package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sacredflow/backend-go/internal/db"
	"github.com/sacredflow/backend-go/internal/db/models"
	"github.com/sacredflow/backend-go/internal/db/repository"
	"github.com/sacredflow/backend-go/internal/service"
	"github.com/sacredflow/backend-go/pkg/logger"
)

// CommunicationsHandler exposes the communications log and the public chat
// intake endpoint.
type CommunicationsHandler struct {
	comms repository.CommunicationRepository
	svc   *service.CommunicationService
}

// NewCommunicationsHandler creates a CommunicationsHandler.
func NewCommunicationsHandler(comms repository.CommunicationRepository, svc *service.CommunicationService) *CommunicationsHandler {
	return &CommunicationsHandler{comms: comms, svc: svc}
}

// createCommunicationRequest is the body for POST /communications.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type createCommunicationRequest struct {
	Channel           string         `json:"channel" binding:"required"`
	Direction         string         `json:"direction" binding:"required,oneof=inbound outbound"`
	Status            string         `json:"status"`
	Subject           *string        `json:"subject"`
	Body              string         `json:"body" binding:"required"`
	UserID            *string        `json:"user_id"`
	ContactEmail      *string        `json:"contact_email"`
	ContactName       *string        `json:"contact_name"`
	ExternalReference *string        `json:"external_reference"`
	Meta              map[string]any `json:"meta"`
	Attachments       []any          `json:"attachments"`
}

// Create records an outbound or inbound communication.
func (h *CommunicationsHandler) Create(c *gin.Context) {
	var req createCommunicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}

	status := req.Status
	if status == "" {
		status = "recorded"
	}
	now := time.Now().UTC()
	comm := &models.Communication{
		ID:                uuid.New(),
		Channel:           req.Channel,
		Direction:         req.Direction,
		Status:            status,
		Subject:           req.Subject,
		Body:              req.Body,
		UserID:            req.UserID,
		ContactEmail:      req.ContactEmail,
		ContactName:       req.ContactName,
		ExternalReference: req.ExternalReference,
		Meta:              req.Meta,
		Attachments:       req.Attachments,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := h.comms.Create(c.Request.Context(), comm); err != nil {
		logger.Log.Error("failed to create communication", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to create communication")
		return
	}

	c.JSON(http.StatusCreated, comm)
}

// List returns communications matching the query filters.
func (h *CommunicationsHandler) List(c *gin.Context) {
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

	filters := &repository.CommunicationFilters{Limit: limit, Offset: offset}
	if v := c.Query("channel"); v != "" {
		filters.Channel = &v
	}
	if v := c.Query("direction"); v != "" {
		filters.Direction = &v
	}
	if v := c.Query("is_read"); v != "" {
		isRead := v == "true"
		filters.IsRead = &isRead
	}
	if v := c.Query("user_id"); v != "" {
		filters.UserID = &v
	}

	comms, err := h.comms.List(c.Request.Context(), filters)
	if err != nil {
		logger.Log.Error("failed to list communications", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to list communications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"communications": comms,
		"count":          len(comms),
	})
}

// Get returns one communication by id.
func (h *CommunicationsHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid communication id")
		return
	}

	comm, err := h.comms.GetByID(c.Request.Context(), id)
	if db.IsNotFound(err) {
		respondError(c, http.StatusNotFound, "communication not found")
		return
	}
	if err != nil {
		logger.Log.Error("failed to get communication", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to get communication")
		return
	}

	c.JSON(http.StatusOK, comm)
}

// patchCommunicationRequest is the body for PATCH /communications/:id. Only
// present fields are applied.
type patchCommunicationRequest struct {
	Status *string        `json:"status"`
	IsRead *bool          `json:"is_read"`
	Meta   map[string]any `json:"meta"`
}

// Patch updates the mutable fields of a communication.
func (h *CommunicationsHandler) Patch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid communication id")
		return
	}

	var req patchCommunicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}

	comm, err := h.comms.GetByID(c.Request.Context(), id)
	if db.IsNotFound(err) {
		respondError(c, http.StatusNotFound, "communication not found")
		return
	}
	if err != nil {
		logger.Log.Error("failed to get communication", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to get communication")
		return
	}

	if req.Status != nil {
		comm.Status = *req.Status
	}
	if req.IsRead != nil {
		comm.IsRead = *req.IsRead
	}
	if req.Meta != nil {
		comm.Meta = req.Meta
	}
	comm.UpdatedAt = time.Now().UTC()

	if err := h.comms.Update(c.Request.Context(), comm); err != nil {
		logger.Log.Error("failed to update communication", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to update communication")
		return
	}

	c.JSON(http.StatusOK, comm)
}

// UnreadCount returns the number of unread inbound communications.
func (h *CommunicationsHandler) UnreadCount(c *gin.Context) {
	count, err := h.comms.UnreadCount(c.Request.Context())
	if err != nil {
		logger.Log.Error("failed to count unread communications", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to count unread communications")
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// chatIntakeRequest is the body for POST /communications/chat/intake.
type chatIntakeRequest struct {
	Body         string         `json:"body" binding:"required"`
	ContactEmail string         `json:"contact_email"`
	ContactName  string         `json:"contact_name"`
	UserID       string         `json:"user_id"`
	Meta         map[string]any `json:"meta"`
}

// ChatIntake accepts a message from the public chat widget, persists it, and
// relays it to the configured endpoints. Relay failures surface as warnings.
func (h *CommunicationsHandler) ChatIntake(c *gin.Context) {
	var req chatIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}

	comm, warnings, err := h.svc.ChatIntake(c.Request.Context(), &service.ChatIntakeInput{
		Body:         req.Body,
		ContactEmail: req.ContactEmail,
		ContactName:  req.ContactName,
		UserID:       req.UserID,
		Meta:         req.Meta,
	})
	if err != nil {
		logger.Log.Error("chat intake failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to store chat message")
		return
	}

	response := gin.H{"communication": comm}
	if len(warnings) > 0 {
		response["warnings"] = warnings
	}
	c.JSON(http.StatusCreated, response)
}
