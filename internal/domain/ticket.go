package domain

import (
	"regexp"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen          TicketStatus = "open"
	TicketStatusInProgress    TicketStatus = "in_progress"
	TicketStatusPendingClient TicketStatus = "pending_client"
	TicketStatusResolved      TicketStatus = "resolved"
	TicketStatusClosed        TicketStatus = "closed"
	TicketStatusReopened      TicketStatus = "reopened"
)

// Known reports whether the status is one of the six recognized states.
func (s TicketStatus) Known() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusPendingClient,
		TicketStatusResolved, TicketStatusClosed, TicketStatusReopened:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Known reports whether the priority is recognized.
func (p TicketPriority) Known() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// Label returns the human-readable form used in audit-log details.
func (p TicketPriority) Label() string {
	switch p {
	case TicketPriorityLow:
		return "Low"
	case TicketPriorityMedium:
		return "Medium"
	case TicketPriorityHigh:
		return "High"
	case TicketPriorityCritical:
		return "Critical"
	}
	return string(p)
}

// TicketCategory enumerates ticket classification values.
type TicketCategory string

const (
	TicketCategoryTechnical      TicketCategory = "technical"
	TicketCategoryBilling        TicketCategory = "billing"
	TicketCategoryAccount        TicketCategory = "account"
	TicketCategoryFeatureRequest TicketCategory = "feature_request"
	TicketCategoryOther          TicketCategory = "other"
)

// Known reports whether the category is recognized.
func (c TicketCategory) Known() bool {
	switch c {
	case TicketCategoryTechnical, TicketCategoryBilling, TicketCategoryAccount,
		TicketCategoryFeatureRequest, TicketCategoryOther:
		return true
	}
	return false
}

// Label returns the human-readable form used in audit-log details.
func (c TicketCategory) Label() string {
	switch c {
	case TicketCategoryTechnical:
		return "Technical Issue"
	case TicketCategoryBilling:
		return "Billing"
	case TicketCategoryAccount:
		return "Account Issue"
	case TicketCategoryFeatureRequest:
		return "Feature Request"
	case TicketCategoryOther:
		return "Other"
	}
	return string(c)
}

// TicketNumberPattern matches generated ticket numbers.
var TicketNumberPattern = regexp.MustCompile(`^TICKET-[A-Z0-9]{8}$`)

// Ticket is the aggregate for support requests.
//
// EngineerID mirrors the primary ticket_engineers link and is maintained
// by the assignment service; the link table is authoritative.
type Ticket struct {
	ID               string
	TicketNumber     string
	Title            string
	Description      string
	ClientID         string
	EngineerID       *string
	AdminID          *string
	Priority         TicketPriority
	Status           TicketStatus
	Category         TicketCategory
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ResolvedAt       *time.Time
	Deadline         *time.Time
	IsEscalated      bool
	EscalationReason *string
}
