package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sacredflow/backend-go/internal/db/models"
	"github.com/sacredflow/backend-go/internal/db/repository"
	"github.com/sacredflow/backend-go/pkg/logger"
)

// ChatForwarder relays an inbound chat message to the external endpoints.
type ChatForwarder interface {
	ForwardChatMessage(ctx context.Context, comm *models.Communication) []string
}

// ChatIntakeInput is an inbound chat message from the public widget.
type ChatIntakeInput struct {
	Body         string
	ContactEmail string
	ContactName  string
	UserID       string
	Meta         map[string]any
}

// CommunicationService owns the communications log and the chat relay.
type CommunicationService struct {
	comms     repository.CommunicationRepository
	forwarder ChatForwarder
}

// NewCommunicationService creates a CommunicationService. forwarder may be
// nil, which disables relaying.
func NewCommunicationService(comms repository.CommunicationRepository, forwarder ChatForwarder) *CommunicationService {
	return &CommunicationService{comms: comms, forwarder: forwarder}
}

// ChatIntake persists the inbound message first, then relays it. Forwarding
// problems come back as warnings; the message is stored either way.
func (s *CommunicationService) ChatIntake(ctx context.Context, input *ChatIntakeInput) (*models.Communication, []string, error) {
	now := time.Now().UTC()
	comm := &models.Communication{
		ID:        uuid.New(),
		Channel:   "chat",
		Direction: models.CommunicationDirectionInbound,
		Status:    "received",
		Body:      input.Body,
		Meta:      input.Meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.ContactEmail != "" {
		comm.ContactEmail = &input.ContactEmail
	}
	if input.ContactName != "" {
		comm.ContactName = &input.ContactName
	}
	if input.UserID != "" {
		comm.UserID = &input.UserID
	}

	if err := s.comms.Create(ctx, comm); err != nil {
		return nil, nil, err
	}

	var warnings []string
	if s.forwarder != nil {
		warnings = s.forwarder.ForwardChatMessage(ctx, comm)
	}

	logger.Log.Info("chat message ingested",
		zap.String("communication_id", comm.ID.String()),
		zap.Int("forward_warnings", len(warnings)))
	return comm, warnings, nil
}
