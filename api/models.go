package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memochat/memochat/domain"
)

// ListModels returns the model catalog for client display.
// GET /api/models
func (h *Handler) ListModels(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"models": domain.Models,
	})
}
