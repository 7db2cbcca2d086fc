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

// AssignmentService handles engineer-to-ticket binding. The
// ticket_engineers link table is authoritative; tickets.engineer_id is
// kept mirrored to the primary link after every change.
type AssignmentService struct {
	tickets     repository.TicketRepository
	users       repository.UserRepository
	links       repository.TicketEngineerRepository
	assignments repository.AssignmentRepository
	logs        repository.TicketLogRepository
	dispatcher  events.Dispatcher
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo         repository.TicketRepository
	UserRepo           repository.UserRepository
	TicketEngineerRepo repository.TicketEngineerRepository
	AssignmentRepo     repository.AssignmentRepository
	LogRepo            repository.TicketLogRepository
	Dispatcher         events.Dispatcher
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:     deps.TicketRepo,
		users:       deps.UserRepo,
		links:       deps.TicketEngineerRepo,
		assignments: deps.AssignmentRepo,
		logs:        deps.LogRepo,
		dispatcher:  deps.Dispatcher,
	}
}

// AssignInput describes a batch assignment request.
type AssignInput struct {
	EngineerIDs   []string
	ClearExisting bool
	Note          *string
}

// AssignResult reports the outcome of a batch assignment.
type AssignResult struct {
	Ticket            *domain.Ticket
	AssignedCount     int
	AssignedUsernames []string
}

// AssignEngineers binds a set of engineers to a ticket. Unknown ids and
// non-engineer users are skipped rather than failing the batch.
func (s *AssignmentService) AssignEngineers(ctx context.Context, actor *domain.User, ticketID string, input AssignInput) (*AssignResult, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if len(input.EngineerIDs) == 0 {
		return nil, apperrors.NewValidationError("Engineer IDs required", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	if input.ClearExisting {
		existing, err := s.links.ListByTicket(ctx, ticket.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if err := s.links.DeleteByTicket(ctx, ticket.ID); err != nil {
			return nil, apperrors.MapError(err)
		}
		for _, link := range existing {
			if err := s.users.AdjustEngineerTicketCount(ctx, link.EngineerID, -1); err != nil {
				return nil, apperrors.MapError(err)
			}
		}
	}

	existing, err := s.links.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	hadLinks := len(existing) > 0

	assigned := make([]*domain.User, 0, len(input.EngineerIDs))
	for _, engineerID := range input.EngineerIDs {
		engineer, err := s.users.GetEngineerByID(ctx, engineerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, apperrors.MapError(err)
		}

		link := &domain.TicketEngineer{
			TicketID:   ticket.ID,
			EngineerID: engineer.ID,
			IsPrimary:  !hadLinks && len(assigned) == 0,
		}
		created, err := s.links.FindOrCreate(ctx, link)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if created {
			if err := s.assignments.Create(ctx, &domain.Assignment{
				TicketID:     ticket.ID,
				EngineerID:   engineer.ID,
				AssignedByID: actor.ID,
				Note:         input.Note,
			}); err != nil {
				return nil, apperrors.MapError(err)
			}
			if err := s.users.AdjustEngineerTicketCount(ctx, engineer.ID, 1); err != nil {
				return nil, apperrors.MapError(err)
			}
		}
		assigned = append(assigned, engineer)
	}

	if err := s.syncLegacyEngineer(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	// One-way transition: an open ticket with at least one engineer moves
	// to in_progress; later states are never reverted here.
	if ticket.Status == domain.TicketStatusOpen && len(assigned) > 0 {
		ticket.Status = domain.TicketStatusInProgress
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	usernames := make([]string, 0, len(assigned))
	engineerIDs := make([]string, 0, len(assigned))
	for _, engineer := range assigned {
		usernames = append(usernames, engineer.Username)
		engineerIDs = append(engineerIDs, engineer.ID)
	}

	action := fmt.Sprintf("Ticket assigned to %s", strings.Join(usernames, ", "))
	details := fmt.Sprintf("Assigned by %s", actor.Username)
	if input.Note != nil && strings.TrimSpace(*input.Note) != "" {
		details = fmt.Sprintf("%s. Note: %s", details, strings.TrimSpace(*input.Note))
	}
	if err := s.logs.Create(ctx, &domain.TicketLog{
		TicketID: ticket.ID,
		UserID:   &actor.ID,
		Action:   action,
		Details:  &details,
	}); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.ID, Role: actor.Role},
		Payload: events.TicketAssignedPayload{
			EngineerIDs: engineerIDs,
			PrimaryID:   ticket.EngineerID,
		},
	})

	return &AssignResult{
		Ticket:            ticket,
		AssignedCount:     len(assigned),
		AssignedUsernames: usernames,
	}, nil
}

// ListAssignments returns the append-only assignment history, scoped to
// callers who can see the ticket.
func (s *AssignmentService) ListAssignments(ctx context.Context, caller *domain.User, ticketID string) ([]domain.Assignment, error) {
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
	history, err := s.assignments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return history, nil
}

// ListAssignedEngineers returns the current link rows for a ticket.
func (s *AssignmentService) ListAssignedEngineers(ctx context.Context, caller *domain.User, ticketID string) ([]domain.TicketEngineer, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	links, err := s.links.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return links, nil
}

// syncLegacyEngineer mirrors the primary link onto tickets.engineer_id,
// falling back to the oldest link, and clearing it when no links remain.
func (s *AssignmentService) syncLegacyEngineer(ctx context.Context, ticket *domain.Ticket) error {
	links, err := s.links.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		ticket.EngineerID = nil
		return nil
	}
	primary := links[0]
	for _, link := range links {
		if link.IsPrimary {
			primary = link
			break
		}
	}
	engineerID := primary.EngineerID
	ticket.EngineerID = &engineerID
	return nil
}

func (s *AssignmentService) publish(ctx context.Context, event events.Event) {
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
