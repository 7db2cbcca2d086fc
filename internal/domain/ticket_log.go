package domain

import "time"

// TicketLog is an immutable audit trail entry. UserID is nullable so
// entries survive deletion of the acting user.
type TicketLog struct {
	ID        string
	TicketID  string
	UserID    *string
	Action    string
	Details   *string
	CreatedAt time.Time
}
