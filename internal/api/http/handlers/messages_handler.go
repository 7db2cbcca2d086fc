package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// MessagesHandler exposes the per-ticket message thread.
type MessagesHandler struct {
	messages *service.MessageService
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(messages *service.MessageService) *MessagesHandler {
	return &MessagesHandler{messages: messages}
}

// Post handles POST /tickets/:id/messages.
func (h *MessagesHandler) Post(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Content == "" {
		return apperrors.NewValidationError("content required", nil)
	}

	message, err := h.messages.PostMessage(c.Context(), principal.User, service.MessageCreateInput{
		TicketID:      c.Params("id"),
		Content:       req.Content,
		AttachmentKey: req.AttachmentKey,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(message)})
}

// List handles GET /tickets/:id/messages. Listing also marks the other
// participants' messages as read for the caller.
func (h *MessagesHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	ticketID := c.Params("id")
	messages, err := h.messages.ListMessages(c.Context(), principal.User, ticketID)
	if err != nil {
		return err
	}
	if _, err := h.messages.MarkMessagesRead(c.Context(), principal.User, ticketID); err != nil {
		return err
	}

	items := make([]dto.MessageResponse, 0, len(messages))
	for i := range messages {
		items = append(items, messageResponse(&messages[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// MarkRead handles POST /tickets/:id/messages/read.
func (h *MessagesHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	updated, err := h.messages.MarkMessagesRead(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"marked_read": updated}})
}

func messageResponse(message *domain.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:            message.ID,
		TicketID:      message.TicketID,
		SenderID:      message.SenderID,
		Content:       message.Content,
		AttachmentKey: message.AttachmentKey,
		IsRead:        message.IsRead,
		CreatedAt:     message.CreatedAt,
	}
}
