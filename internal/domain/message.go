package domain

import "time"

// Message is a per-ticket chat entry. AttachmentKey references an opaque
// blob in the external storage service.
type Message struct {
	ID            string
	TicketID      string
	SenderID      string
	Content       string
	AttachmentKey *string
	IsRead        bool
	CreatedAt     time.Time
}
