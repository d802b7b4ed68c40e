// Package store defines the storage interface and implementations.
package store

import (
	"context"
	"errors"

	"github.com/memochat/memochat/domain"
)

// ErrUsernameTaken is returned by CreateUser when the username is already
// registered.
var ErrUsernameTaken = errors.New("username already exists")

// Store defines the interface for data persistence.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateUserAPIKey(ctx context.Context, userID, apiKey string) error

	// Conversation operations
	CreateConversation(ctx context.Context, conv *domain.Conversation) error
	GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, userID string, limit int) ([]domain.ConversationPreview, error)
	UpdateConversationSummary(ctx context.Context, conversationID, summary string) error

	// Message operations
	GetMessages(ctx context.Context, conversationID string) ([]domain.Message, error)

	// FinalizeTurn appends a finished turn's user and assistant messages
	// with contiguous sequence numbers and advances the conversation's
	// message counter, all inside one transaction. An empty reasoning
	// string is stored as absent.
	FinalizeTurn(ctx context.Context, conversationID, userContent, assistantContent, reasoning string) error

	// Lifecycle
	Close() error
}
