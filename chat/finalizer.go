package chat

import (
	"context"
	"log"
	"strings"

	"github.com/memochat/memochat/domain"
	"github.com/memochat/memochat/memory"
	"github.com/memochat/memochat/store"
)

// Finalizer durably commits a completed turn, then extends the session
// cache. The cache is only touched after the transaction commits; on a
// durable failure both stay unmodified and the turn is lost from memory
// continuity (the client already received the streamed answer).
type Finalizer struct {
	store    store.Store
	sessions *memory.SessionStore
}

// NewFinalizer creates a finalizer over the given durable store and
// session cache.
func NewFinalizer(st store.Store, sessions *memory.SessionStore) *Finalizer {
	return &Finalizer{store: st, sessions: sessions}
}

// FinalizeTurn persists the turn's user and assistant messages and then
// appends them to the session. Whitespace-only reasoning is dropped
// entirely rather than stored as an empty string.
func (f *Finalizer) FinalizeTurn(ctx context.Context, conversationID, input string, result RelayResult) error {
	reasoning := result.Reasoning
	if strings.TrimSpace(reasoning) == "" {
		reasoning = ""
	}

	if err := f.store.FinalizeTurn(ctx, conversationID, input, result.Content, reasoning); err != nil {
		log.Printf("ERROR: failed to finalize turn for conversation %s: %v", conversationID, err)
		return err
	}

	f.sessions.AppendTurn(conversationID,
		memory.Turn{Role: domain.RoleUser, Content: input},
		memory.Turn{Role: domain.RoleAssistant, Content: result.Content, Reasoning: reasoning},
	)
	return nil
}
