package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/memochat/memochat/auth"
	"github.com/memochat/memochat/chat"
	"github.com/memochat/memochat/domain"
	"github.com/memochat/memochat/policy"
)

// ChatTurn handles one conversation turn.
// POST /api/chat
//
// On success the response is a live text/event-stream; every failure
// before the stream opens is a structured JSON error instead.
func (h *Handler) ChatTurn(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "Invalid request body"})
	}

	input := strings.TrimSpace(req.Input)
	if input == "" {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "Missing input"})
	}

	userID := auth.UserID(c)
	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		log.Printf("ERROR: failed to load user %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "Failed to load user"})
	}
	if user == nil {
		return c.JSON(http.StatusUnauthorized, domain.ErrorResponse{Error: "Unauthorized"})
	}
	if user.APIKey == "" {
		return c.JSON(http.StatusForbidden, domain.ErrorResponse{Error: "User API Key not set"})
	}

	modelID := req.ModelID
	if modelID == "" {
		modelID = domain.DefaultModelID
	}

	model, known := domain.FindModel(modelID)
	decision, err := h.policy.Evaluate(ctx, policy.Input{
		UserID:  userID,
		ModelID: modelID,
		Known:   known,
		Tier:    string(model.Tier),
	})
	if err != nil {
		log.Printf("ERROR: policy evaluation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "Policy evaluation failed"})
	}
	if decision != "allow" {
		return c.JSON(http.StatusForbidden, domain.ErrorResponse{Error: "Model not allowed"})
	}

	log.Printf("user %s selected model: %s", userID, modelID)

	err = h.engine.StreamTurn(ctx, c.Response(), chat.TurnRequest{
		UserID:         userID,
		Input:          input,
		ConversationID: req.ConversationID,
		ModelID:        modelID,
		Reset:          req.Reset,
		APIKey:         user.APIKey,
	})
	if err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			return c.JSON(http.StatusNotFound, domain.ErrorResponse{Error: "Conversation not found"})
		}
		if errors.Is(err, chat.ErrStreamingUnsupported) {
			return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "Streaming not supported"})
		}
		log.Printf("ERROR: chat turn failed for user %s: %v", userID, err)
		return c.JSON(http.StatusBadGateway, domain.ErrorResponse{Error: "Failed to contact inference provider"})
	}
	return nil
}
