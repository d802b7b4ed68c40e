package domain

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Input          string `json:"input"`
	ConversationID string `json:"conversationId,omitempty"`
	ModelID        string `json:"modelId,omitempty"`
	Reset          bool   `json:"reset,omitempty"`
}

// LoginRequest is the body of POST /api/user.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IsSignup bool   `json:"isSignup"`
}

// APIKeyRequest is the body of POST /api/user/api-key.
type APIKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// ErrorResponse is the structured JSON error body for non-streaming
// failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StreamEvent is one client-facing SSE event body. The terminal sentinel
// is the literal [DONE] and is not JSON-wrapped.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Content string          `json:"content"`
}
