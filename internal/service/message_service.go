package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// logPreviewLimit caps the audit-log preview; the stored message body is
// never truncated.
const logPreviewLimit = 100

// MessageService manages per-ticket chat threads.
type MessageService struct {
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	logs       repository.TicketLogRepository
	dispatcher events.Dispatcher
}

// MessageDependencies bundles repositories.
type MessageDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.MessageRepository
	LogRepo     repository.TicketLogRepository
	Dispatcher  events.Dispatcher
}

// NewMessageService creates the service.
func NewMessageService(deps MessageDependencies) *MessageService {
	return &MessageService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		logs:       deps.LogRepo,
		dispatcher: deps.Dispatcher,
	}
}

// MessageCreateInput describes a new chat entry. Sender comes from the
// authenticated principal, never from the payload.
type MessageCreateInput struct {
	TicketID      string
	Content       string
	AttachmentKey *string
}

// PostMessage appends a message to a ticket thread. Any authenticated
// user may post; only ticket existence is checked at this layer.
func (s *MessageService) PostMessage(ctx context.Context, sender *domain.User, input MessageCreateInput) (*domain.Message, error) {
	if sender == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("content required", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, input.TicketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": input.TicketID})
		}
		return nil, apperrors.MapError(err)
	}

	msg := &domain.Message{
		TicketID:      ticket.ID,
		SenderID:      sender.ID,
		Content:       content,
		AttachmentKey: input.AttachmentKey,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}

	details := "Message: " + contentPreview(content, logPreviewLimit)
	if err := s.logs.Create(ctx, &domain.TicketLog{
		TicketID: ticket.ID,
		UserID:   &sender.ID,
		Action:   fmt.Sprintf("Message sent by %s", sender.Username),
		Details:  &details,
	}); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventMessagePosted,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: sender.ID, Role: sender.Role},
		Payload: events.MessagePostedPayload{
			MessageID:      msg.ID,
			SenderID:       sender.ID,
			ContentPreview: contentPreview(content, logPreviewLimit),
		},
	})
	return msg, nil
}

// ListMessages returns the thread in chronological (oldest-first) order.
func (s *MessageService) ListMessages(ctx context.Context, caller *domain.User, ticketID string) ([]domain.Message, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return msgs, nil
}

// MarkMessagesRead flags messages from other participants as read and
// returns the number of rows affected.
func (s *MessageService) MarkMessagesRead(ctx context.Context, caller *domain.User, ticketID string) (int64, error) {
	if caller == nil {
		return 0, apperrors.NewUnauthorized("authentication required")
	}
	count, err := s.messages.MarkReadForReader(ctx, ticketID, caller.ID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

// contentPreview truncates to max runes including a trailing ellipsis.
func contentPreview(content string, max int) string {
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func (s *MessageService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
