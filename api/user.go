package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/memochat/memochat/domain"
	"github.com/memochat/memochat/store"
)

// LoginOrSignup authenticates or registers a user and issues the session
// cookie.
// POST /api/user
func (h *Handler) LoginOrSignup(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "Invalid request body"})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "Missing username or password"})
	}

	var user *domain.User
	if req.IsSignup {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("ERROR: failed to hash password: %v", err)
			return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "Failed to create user"})
		}
		user = &domain.User{
			UserID:       uuid.New().String(),
			Username:     req.Username,
			PasswordHash: string(hash),
			CreatedAt:    time.Now(),
		}
		if err := h.store.CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrUsernameTaken) {
				return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "User already exists"})
			}
			log.Printf("ERROR: failed to create user: %v", err)
			return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "Failed to create user"})
		}
	} else {
		existing, err := h.store.GetUserByUsername(ctx, req.Username)
		if err != nil {
			log.Printf("ERROR: failed to load user: %v", err)
			return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "Failed to load user"})
		}
		if existing == nil {
			return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "Invalid username!"})
		}
		if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(req.Password)) != nil {
			return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "Invalid password!"})
		}
		user = existing
	}

	token, err := h.auth.IssueToken(user.UserID)
	if err != nil {
		log.Printf("ERROR: failed to issue token: %v", err)
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "Failed to issue session token"})
	}
	c.SetCookie(h.auth.SessionCookie(token))

	return c.JSON(http.StatusOK, map[string]string{
		"user_id":  user.UserID,
		"username": user.Username,
	})
}
