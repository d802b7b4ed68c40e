package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/memochat/memochat/auth"
	"github.com/memochat/memochat/domain"
)

// GetAPIKeyStatus reports whether the caller has a provider API key set.
// GET /api/user/api-key
func (h *Handler) GetAPIKeyStatus(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.UserID(c)

	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		log.Printf("ERROR: failed to get API key status: %v", err)
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "Failed to get API key status"})
	}

	hasKey := user != nil && user.APIKey != ""
	return c.JSON(http.StatusOK, map[string]bool{"has_api_key": hasKey})
}

// SetAPIKey saves or updates the caller's provider API key.
// POST /api/user/api-key
func (h *Handler) SetAPIKey(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.UserID(c)

	var req domain.APIKeyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "Invalid request body"})
	}

	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "API Key is required"})
	}
	if !strings.HasPrefix(apiKey, "sk-") {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "Invalid API Key format"})
	}

	if err := h.store.UpdateUserAPIKey(ctx, userID, apiKey); err != nil {
		log.Printf("ERROR: failed to save API key: %v", err)
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "Failed to save API key"})
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// DeleteAPIKey removes the caller's provider API key.
// DELETE /api/user/api-key
func (h *Handler) DeleteAPIKey(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.UserID(c)

	if err := h.store.UpdateUserAPIKey(ctx, userID, ""); err != nil {
		log.Printf("ERROR: failed to delete API key: %v", err)
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "Failed to delete API key"})
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
