package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// TicketsHandler exposes ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	assignments *service.AssignmentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, assignments *service.AssignmentService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, assignments: assignments}
}

// Create handles POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.CreateTicket(c.Context(), principal.User, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Deadline:    req.Deadline,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket, nil)})
}

// List handles GET /tickets with optional filters.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	input, err := parseListInput(c)
	if err != nil {
		return err
	}

	tickets, err := h.tickets.ListTickets(c.Context(), principal.User, input)
	if err != nil {
		return err
	}

	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i], nil))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get handles GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	ticket, err := h.tickets.GetTicket(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	links, err := h.assignments.ListAssignedEngineers(c.Context(), principal.User, ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, links)})
}

// Update handles PATCH /tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.UpdateTicket(c.Context(), principal.User, c.Params("id"), service.TicketUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, nil)})
}

// Assign handles POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.assignments.AssignEngineers(c.Context(), principal.User, c.Params("id"), service.AssignInput{
		EngineerIDs:   req.EngineerIDs,
		ClearExisting: req.ClearExisting,
		Note:          req.Note,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.AssignTicketResponse{
		Message:           "Ticket assigned successfully",
		AssignedEngineers: result.AssignedUsernames,
	}})
}

// UpdateStatus handles POST /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.UpdateStatus(c.Context(), principal.User, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, nil)})
}

// Escalate handles POST /tickets/:id/escalate.
func (h *TicketsHandler) Escalate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.EscalateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.EscalateTicket(c.Context(), principal.User, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, nil)})
}

// Logs handles GET /tickets/:id/logs.
func (h *TicketsHandler) Logs(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	logs, err := h.tickets.ListLogs(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}

	items := make([]dto.TicketLogResponse, 0, len(logs))
	for i := range logs {
		items = append(items, dto.TicketLogResponse{
			ID:        logs[i].ID,
			TicketID:  logs[i].TicketID,
			UserID:    logs[i].UserID,
			Action:    logs[i].Action,
			Details:   logs[i].Details,
			CreatedAt: logs[i].CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Assignments handles GET /tickets/:id/assignments.
func (h *TicketsHandler) Assignments(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	history, err := h.assignments.ListAssignments(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}

	items := make([]dto.AssignmentResponse, 0, len(history))
	for i := range history {
		items = append(items, dto.AssignmentResponse{
			ID:           history[i].ID,
			TicketID:     history[i].TicketID,
			EngineerID:   history[i].EngineerID,
			AssignedByID: history[i].AssignedByID,
			AssignedAt:   history[i].AssignedAt,
			Note:         history[i].Note,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseListInput(c *fiber.Ctx) (service.TicketListInput, error) {
	input := service.TicketListInput{
		OrderBy: repository.TicketOrder(c.Query("order_by")),
	}

	if raw := c.Query("status"); raw != "" {
		status := domain.TicketStatus(raw)
		if !status.Known() {
			return input, apperrors.NewValidationError("unknown status", map[string]any{"status": raw})
		}
		input.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority := domain.TicketPriority(raw)
		if !priority.Known() {
			return input, apperrors.NewValidationError("unknown priority", map[string]any{"priority": raw})
		}
		input.Priority = &priority
	}
	if raw := c.Query("category"); raw != "" {
		category := domain.TicketCategory(raw)
		if !category.Known() {
			return input, apperrors.NewValidationError("unknown category", map[string]any{"category": raw})
		}
		input.Category = &category
	}
	if raw := c.Query("search"); raw != "" {
		input.SearchTerm = &raw
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return input, apperrors.NewValidationError("invalid limit", map[string]any{"limit": raw})
		}
		input.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return input, apperrors.NewValidationError("invalid offset", map[string]any{"offset": raw})
		}
		input.Offset = offset
	}
	return input, nil
}

func ticketResponse(ticket *domain.Ticket, links []domain.TicketEngineer) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:               ticket.ID,
		TicketNumber:     ticket.TicketNumber,
		Title:            ticket.Title,
		Description:      ticket.Description,
		ClientID:         ticket.ClientID,
		EngineerID:       ticket.EngineerID,
		Priority:         ticket.Priority,
		Status:           ticket.Status,
		Category:         ticket.Category,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
		ResolvedAt:       ticket.ResolvedAt,
		Deadline:         ticket.Deadline,
		IsEscalated:      ticket.IsEscalated,
		EscalationReason: ticket.EscalationReason,
	}
	for i := range links {
		resp.Engineers = append(resp.Engineers, dto.TicketEngineerBrief{
			EngineerID: links[i].EngineerID,
			IsPrimary:  links[i].IsPrimary,
			AssignedAt: links[i].AssignedAt,
		})
	}
	return resp
}
