package service

import (
	"context"
	"crypto/rand"
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

const (
	ticketNumberPrefix   = "TICKET-"
	ticketNumberLength   = 8
	ticketNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxTicketNumberAttempts bounds the collision-retry loop; exceeding
	// it surfaces an explicit error instead of spinning forever.
	maxTicketNumberAttempts = 10
)

// ErrTicketNumberExhausted is returned when every generation attempt
// collided with an existing ticket number.
var ErrTicketNumberExhausted = errors.New("ticket number generation exhausted")

// TicketService coordinates the ticket lifecycle.
type TicketService struct {
	tickets    repository.TicketRepository
	logs       repository.TicketLogRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	LogRepo    repository.TicketLogRepository
	Dispatcher events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		logs:       deps.LogRepo,
		dispatcher: deps.Dispatcher,
	}
}

// TicketCreateInput describes the client-supplied creation payload.
// Server-controlled fields (id, number, client, status, timestamps) are
// never part of it.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
	Deadline    *time.Time
}

// TicketUpdateInput carries the caller-updatable fields; nil means keep.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Category    *domain.TicketCategory
	Priority    *domain.TicketPriority
}

// TicketListInput describes listing filters.
type TicketListInput struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	Category   *domain.TicketCategory
	SearchTerm *string
	OrderBy    repository.TicketOrder
	Limit      int
	Offset     int
}

// CreateTicket opens a ticket for a client. Status is forced to open
// regardless of anything the caller sent.
func (s *TicketService) CreateTicket(ctx context.Context, client *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if client == nil {
		return nil, apperrors.NewUnauthorized("client required")
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Known() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	category := input.Category
	if category == "" {
		category = domain.TicketCategoryTechnical
	}
	if !category.Known() {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": category})
	}

	number, err := s.generateTicketNumber(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	ticket := &domain.Ticket{
		TicketNumber: number,
		Title:        title,
		Description:  description,
		ClientID:     client.ID,
		Priority:     priority,
		Status:       domain.TicketStatusOpen,
		Category:     category,
		Deadline:     input.Deadline,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	details := fmt.Sprintf("Title: %s, Priority: %s, Category: %s",
		ticket.Title, ticket.Priority.Label(), ticket.Category.Label())
	if err := s.appendLog(ctx, ticket.ID, &client.ID, "Ticket created", &details); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: client.ID, Role: client.Role},
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			Title:        ticket.Title,
			Priority:     ticket.Priority,
			Category:     ticket.Category,
		},
	})
	return ticket, nil
}

// ListTickets returns tickets visible to the caller's role.
func (s *TicketService) ListTickets(ctx context.Context, caller *domain.User, input TicketListInput) ([]domain.Ticket, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	filter := repository.TicketFilter{
		Status:     input.Status,
		Priority:   input.Priority,
		Category:   input.Category,
		SearchTerm: input.SearchTerm,
		OrderBy:    input.OrderBy,
		Limit:      input.Limit,
		Offset:     input.Offset,
	}

	switch caller.Role {
	case domain.RoleClient:
		filter.ClientID = &caller.ID
	case domain.RoleEngineer:
		filter.EngineerID = &caller.ID
	case domain.RoleAdmin:
		// unscoped
	default:
		return []domain.Ticket{}, nil
	}

	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicket fetches a ticket, applying the caller's visibility scope.
// Out-of-scope tickets are indistinguishable from missing ones.
func (s *TicketService) GetTicket(ctx context.Context, caller *domain.User, ticketID string) (*domain.Ticket, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !ticketVisibleTo(caller, ticket) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// UpdateTicket applies caller-updatable fields within the same scope as
// retrieval.
func (s *TicketService) UpdateTicket(ctx context.Context, caller *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, caller, ticketID)
	if err != nil {
		return nil, err
	}

	changes := []string{}
	if input.Title != nil && strings.TrimSpace(*input.Title) != "" {
		ticket.Title = strings.TrimSpace(*input.Title)
		changes = append(changes, "title")
	}
	if input.Description != nil && strings.TrimSpace(*input.Description) != "" {
		ticket.Description = strings.TrimSpace(*input.Description)
		changes = append(changes, "description")
	}
	if input.Category != nil {
		if !input.Category.Known() {
			return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": *input.Category})
		}
		ticket.Category = *input.Category
		changes = append(changes, "category")
	}
	if input.Priority != nil {
		if !input.Priority.Known() {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *input.Priority})
		}
		ticket.Priority = *input.Priority
		changes = append(changes, "priority")
	}
	if len(changes) == 0 {
		return ticket, nil
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	details := "Fields: " + strings.Join(changes, ", ")
	if err := s.appendLog(ctx, ticket.ID, &caller.ID, "Ticket updated", &details); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: caller.ID, Role: caller.Role},
	})
	return ticket, nil
}

// UpdateStatus moves a ticket to a new lifecycle state. Engineers may
// change tickets assigned to them; admins any ticket.
func (s *TicketService) UpdateStatus(ctx context.Context, caller *domain.User, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if caller.Role != domain.RoleEngineer && caller.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("engineer or admin required")
	}
	if !status.Known() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}

	ticket, err := s.GetTicket(ctx, caller, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	if oldStatus == status {
		return ticket, nil
	}

	ticket.Status = status
	switch status {
	case domain.TicketStatusResolved:
		now := time.Now()
		ticket.ResolvedAt = &now
	case domain.TicketStatusReopened:
		ticket.ResolvedAt = nil
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	details := fmt.Sprintf("Status changed from %s to %s", oldStatus, status)
	if err := s.appendLog(ctx, ticket.ID, &caller.ID, "Status updated", &details); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: caller.ID, Role: caller.Role},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: status,
		},
	})
	return ticket, nil
}

// EscalateTicket flags a ticket with a free-text reason. Admin only.
func (s *TicketService) EscalateTicket(ctx context.Context, caller *domain.User, ticketID, reason string) (*domain.Ticket, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if caller.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("escalation reason required", nil)
	}

	ticket, err := s.GetTicket(ctx, caller, ticketID)
	if err != nil {
		return nil, err
	}
	ticket.IsEscalated = true
	ticket.EscalationReason = &reason
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.appendLog(ctx, ticket.ID, &caller.ID, "Ticket escalated", &reason); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketEscalated,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: caller.ID, Role: caller.Role},
		Payload:  events.TicketEscalatedPayload{Reason: reason},
	})
	return ticket, nil
}

// ListLogs returns the audit trail newest-first, scoped like retrieval.
func (s *TicketService) ListLogs(ctx context.Context, caller *domain.User, ticketID string) ([]domain.TicketLog, error) {
	if _, err := s.GetTicket(ctx, caller, ticketID); err != nil {
		return nil, err
	}
	logs, err := s.logs.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return logs, nil
}

// generateTicketNumber samples TICKET-XXXXXXXX candidates until one is
// free, giving up after maxTicketNumberAttempts collisions. The unique
// constraint on tickets.ticket_number remains the final safety net for
// concurrent creations.
func (s *TicketService) generateTicketNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxTicketNumberAttempts; attempt++ {
		number := ticketNumberPrefix + randomTicketSuffix()
		exists, err := s.tickets.ExistsByNumber(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", ErrTicketNumberExhausted
}

func randomTicketSuffix() string {
	buf := make([]byte, ticketNumberLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// uuid-derived suffix rather than panicking.
		return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:ticketNumberLength]
	}
	out := make([]byte, ticketNumberLength)
	for i, b := range buf {
		out[i] = ticketNumberAlphabet[int(b)%len(ticketNumberAlphabet)]
	}
	return string(out)
}

func ticketVisibleTo(caller *domain.User, ticket *domain.Ticket) bool {
	switch caller.Role {
	case domain.RoleClient:
		return ticket.ClientID == caller.ID
	case domain.RoleEngineer:
		return ticket.EngineerID != nil && *ticket.EngineerID == caller.ID
	case domain.RoleAdmin:
		return true
	}
	return false
}

func (s *TicketService) appendLog(ctx context.Context, ticketID string, userID *string, action string, details *string) error {
	if s.logs == nil {
		return nil
	}
	return s.logs.Create(ctx, &domain.TicketLog{
		TicketID: ticketID,
		UserID:   userID,
		Action:   action,
		Details:  details,
	})
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
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
