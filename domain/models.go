// Package domain defines the core data model.
package domain

import "time"

// User is an account that owns conversations and a provider credential.
type User struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	APIKey       string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Conversation is the durable record of one chat thread. MessageCount is
// advanced only by the turn finalizer, inside the same transaction that
// inserts the turn's messages, so it always equals the number of stored
// messages for the conversation.
type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	MessageCount   int       `json:"message_count"`
	Summary        string    `json:"summary,omitempty"`
}

// Message is a single durable message. Seq is zero-based and contiguous
// within its conversation. Messages are immutable once created.
type Message struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Seq            int       `json:"seq"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Reasoning      string    `json:"reasoning,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationPreview is a conversation plus its first message, used by
// the conversation list endpoint.
type ConversationPreview struct {
	Conversation
	FirstMessage *Message `json:"first_message,omitempty"`
}

// ModelTier groups models by usage allowance.
type ModelTier string

const (
	TierPremium  ModelTier = "premium"
	TierStandard ModelTier = "standard"
	TierBasic    ModelTier = "basic"
)

// ModelInfo describes an entry of the model catalog. Served to clients
// for display; the policy engine decides whether a model may be used.
type ModelInfo struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Provider          string    `json:"provider"`
	Tier              ModelTier `json:"tier"`
	DailyLimit        int       `json:"daily_limit"`
	Description       string    `json:"description,omitempty"`
	SupportsReasoning bool      `json:"supports_reasoning,omitempty"`
}
