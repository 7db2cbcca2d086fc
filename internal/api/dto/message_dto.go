package dto

import "time"

// CreateMessageRequest payload. Sender is taken from the authenticated
// principal, never from the body.
type CreateMessageRequest struct {
	TicketID      string  `json:"ticket_id"`
	Content       string  `json:"content"`
	AttachmentKey *string `json:"attachment_key"`
}

// MessageResponse represents a thread entry.
type MessageResponse struct {
	ID            string    `json:"id"`
	TicketID      string    `json:"ticket_id"`
	SenderID      string    `json:"sender_id"`
	Content       string    `json:"content"`
	AttachmentKey *string   `json:"attachment_key,omitempty"`
	IsRead        bool      `json:"is_read"`
	CreatedAt     time.Time `json:"timestamp"`
}
