package models

import (
	"time"

	"github.com/google/uuid"
)

// Communication channels and directions.
const (
	CommunicationDirectionInbound  = "inbound"
	CommunicationDirectionOutbound = "outbound"
)

// Communication is a persistent record of a chat/email/SMS message flowing
// through SacredFlow.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Communication struct {
	ID                uuid.UUID      `db:"id" json:"id"`
	Channel           string         `db:"channel" json:"channel"`
	Direction         string         `db:"direction" json:"direction"`
	Status            string         `db:"status" json:"status"`
	Subject           *string        `db:"subject" json:"subject,omitempty"`
	Body              string         `db:"body" json:"body"`
	UserID            *string        `db:"user_id" json:"user_id,omitempty"`
	ContactEmail      *string        `db:"contact_email" json:"contact_email,omitempty"`
	ContactName       *string        `db:"contact_name" json:"contact_name,omitempty"`
	ExternalReference *string        `db:"external_reference" json:"external_reference,omitempty"`
	Meta              map[string]any `db:"meta" json:"meta"`
	Attachments       []any          `db:"attachments" json:"attachments"`
	IsRead            bool           `db:"is_read" json:"is_read"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}
