package domain

import "time"

// TicketEngineer links a ticket to an assigned engineer. At most one
// link exists per (ticket, engineer) pair and one per ticket is primary.
type TicketEngineer struct {
	ID         string
	TicketID   string
	EngineerID string
	AssignedAt time.Time
	IsPrimary  bool
}

// Assignment is the append-only history of assignment actions. Rows are
// never updated after insertion.
type Assignment struct {
	ID           string
	TicketID     string
	EngineerID   string
	AssignedByID string
	AssignedAt   time.Time
	Note         *string
}
