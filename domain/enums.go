package domain

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// StreamEventType identifies a client-facing stream event.
type StreamEventType string

const (
	StreamEventContent   StreamEventType = "content"
	StreamEventReasoning StreamEventType = "reasoning"
	StreamEventError     StreamEventType = "error"
)
