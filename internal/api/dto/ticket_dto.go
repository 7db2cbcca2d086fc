package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload. Server-controlled fields (id, number,
// client, status, timestamps) are deliberately absent.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Deadline    *time.Time            `json:"deadline,omitempty"`
}

// UpdateTicketRequest payload for PATCH; nil fields are left untouched.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Category    *domain.TicketCategory `json:"category"`
	Priority    *domain.TicketPriority `json:"priority"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	EngineerIDs   []string `json:"engineer_ids"`
	ClearExisting bool     `json:"clear_existing"`
	Note          *string  `json:"note"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// EscalateTicketRequest payload.
type EscalateTicketRequest struct {
	Reason string `json:"reason"`
}

// TicketResponse is the public ticket representation.
type TicketResponse struct {
	ID               string                 `json:"id"`
	TicketNumber     string                 `json:"ticket_number"`
	Title            string                 `json:"title"`
	Description      string                 `json:"description"`
	ClientID         string                 `json:"client_id"`
	EngineerID       *string                `json:"engineer_id"`
	Priority         domain.TicketPriority  `json:"priority"`
	Status           domain.TicketStatus    `json:"status"`
	Category         domain.TicketCategory  `json:"category"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	ResolvedAt       *time.Time             `json:"resolved_at"`
	Deadline         *time.Time             `json:"deadline,omitempty"`
	IsEscalated      bool                   `json:"is_escalated"`
	EscalationReason *string                `json:"escalation_reason,omitempty"`
	Engineers        []TicketEngineerBrief  `json:"assigned_engineers,omitempty"`
}

// TicketEngineerBrief summarizes a link row for responses.
type TicketEngineerBrief struct {
	EngineerID string    `json:"engineer_id"`
	IsPrimary  bool      `json:"is_primary"`
	AssignedAt time.Time `json:"assigned_at"`
}

// AssignTicketResponse reports a batch assignment outcome.
type AssignTicketResponse struct {
	Message           string   `json:"message"`
	AssignedEngineers []string `json:"assigned_engineers"`
}

// TicketLogResponse is an audit-trail entry.
type TicketLogResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	UserID    *string   `json:"user_id"`
	Action    string    `json:"action"`
	Details   *string   `json:"details"`
	CreatedAt time.Time `json:"timestamp"`
}

// AssignmentResponse is an assignment-history entry.
type AssignmentResponse struct {
	ID           string    `json:"id"`
	TicketID     string    `json:"ticket_id"`
	EngineerID   string    `json:"engineer_id"`
	AssignedByID string    `json:"assigned_by_id"`
	AssignedAt   time.Time `json:"assigned_at"`
	Note         *string   `json:"note"`
}
