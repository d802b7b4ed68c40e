// Package api provides HTTP handlers for the chat service.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memochat/memochat/auth"
	"github.com/memochat/memochat/chat"
	"github.com/memochat/memochat/config"
	"github.com/memochat/memochat/policy"
	"github.com/memochat/memochat/store"
)

// Handler handles HTTP requests.
type Handler struct {
	store  store.Store
	engine *chat.Engine
	auth   *auth.Manager
	policy *policy.Engine
	config *config.Config
}

// NewHandler creates a new handler.
func NewHandler(st store.Store, engine *chat.Engine, authManager *auth.Manager, policyEngine *policy.Engine, cfg *config.Config) *Handler {
	return &Handler{
		store:  st,
		engine: engine,
		auth:   authManager,
		policy: policyEngine,
		config: cfg,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Public
	e.POST("/api/user", h.LoginOrSignup)
	e.GET("/health", h.Health)

	// Authenticated
	g := e.Group("/api", h.auth.Middleware())
	g.POST("/chat", h.ChatTurn)
	g.GET("/user/api-key", h.GetAPIKeyStatus)
	g.POST("/user/api-key", h.SetAPIKey)
	g.DELETE("/user/api-key", h.DeleteAPIKey)
	g.GET("/user/conversations", h.ListConversations)
	g.GET("/conversations/:id", h.GetConversation)
	g.GET("/models", h.ListModels)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
