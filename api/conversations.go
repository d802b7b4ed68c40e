package api

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memochat/memochat/auth"
	"github.com/memochat/memochat/domain"
)

// conversationListLimit caps the conversation list endpoint.
const conversationListLimit = 20

// ListConversations returns the caller's most recently updated
// conversations, newest first, each with its first message as a preview.
// GET /api/user/conversations
func (h *Handler) ListConversations(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.UserID(c)

	previews, err := h.store.ListConversations(ctx, userID, conversationListLimit)
	if err != nil {
		log.Printf("ERROR: failed to list conversations: %v", err)
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "Failed to list conversations"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversations": previews,
	})
}

// GetConversation returns one conversation with its full message
// history in sequence order.
// GET /api/conversations/:id
func (h *Handler) GetConversation(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.UserID(c)
	conversationID := c.Param("id")

	conv, err := h.store.GetConversation(ctx, conversationID)
	if err != nil {
		log.Printf("ERROR: failed to get conversation: %v", err)
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "Failed to get conversation"})
	}
	if conv == nil || conv.UserID != userID {
		return c.JSON(http.StatusNotFound, domain.ErrorResponse{Error: "Conversation not found"})
	}

	messages, err := h.store.GetMessages(ctx, conversationID)
	if err != nil {
		log.Printf("ERROR: failed to get messages: %v", err)
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "Failed to get messages"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversation": conv,
		"messages":     messages,
	})
}
