package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/memochat/memochat/config"
	"github.com/memochat/memochat/domain"
	"github.com/memochat/memochat/memory"
	"github.com/memochat/memochat/provider"
	"github.com/memochat/memochat/store"
)

// ErrConversationNotFound is returned when a turn names a conversation
// that does not exist or belongs to another user.
var ErrConversationNotFound = errors.New("conversation not found")

// ErrStreamingUnsupported is returned when the client connection cannot
// carry a live event stream.
var ErrStreamingUnsupported = errors.New("streaming not supported")

// ConversationIDHeader carries the (possibly server-assigned)
// conversation id so the client can learn it without parsing the stream.
const ConversationIDHeader = "X-Conversation-Id"

// TurnRequest is one validated, authenticated turn.
type TurnRequest struct {
	UserID         string
	Input          string
	ConversationID string
	ModelID        string
	Reset          bool
	APIKey         string
}

// Engine orchestrates a turn: resolve the conversation, build the
// prompt, relay the upstream stream to the client, then finalize,
// summarize and trim in the background. It is the only entry point into
// the conversation memory pipeline.
type Engine struct {
	store      store.Store
	sessions   *memory.SessionStore
	finalizer  *Finalizer
	summarizer *Summarizer
	tasks      *Runner
	cfg        *config.Config
}

// NewEngine wires the engine over its collaborators.
func NewEngine(st store.Store, sessions *memory.SessionStore, tasks *Runner, cfg *config.Config) *Engine {
	return &Engine{
		store:      st,
		sessions:   sessions,
		finalizer:  NewFinalizer(st, sessions),
		summarizer: NewSummarizer(st, sessions),
		tasks:      tasks,
		cfg:        cfg,
	}
}

// Summarizer exposes the engine's summarizer, mainly so tests can tune
// its retry backoff.
func (e *Engine) Summarizer() *Summarizer { return e.summarizer }

// StreamTurn runs one turn end to end. Errors returned here occur before
// any client-visible stream has started, so the caller can still answer
// with a structured error response. Once the stream is open, failures
// are carried in-band and the method returns nil.
func (e *Engine) StreamTurn(ctx context.Context, w http.ResponseWriter, req TurnRequest) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}

	conv, isNew, err := e.resolveConversation(ctx, req.UserID, req.ConversationID)
	if err != nil {
		return err
	}
	conversationID := conv.ConversationID

	// One in-flight turn per conversation; held from prompt build
	// through finalize, summarize and trim.
	unlock := e.sessions.Lock(conversationID)
	handedOff := false
	defer func() {
		if !handedOff {
			unlock()
		}
	}()

	if isNew || req.Reset {
		e.sessions.Reset(conversationID)
	}

	sess := e.sessions.GetOrCreate(conversationID)
	promptMessages := memory.BuildPrompt(sess, req.Input)

	client := provider.NewClient(e.cfg.ProviderBaseURL, req.APIKey, 0)

	// A client disconnect must not cancel the upstream call; the stream
	// is consumed to completion so accumulation and persistence stay
	// correct even when nobody is listening anymore.
	upstreamCtx := context.WithoutCancel(ctx)

	stream, err := client.CreateChatCompletionStream(upstreamCtx, &provider.ChatCompletionRequest{
		Model:    req.ModelID,
		Messages: promptMessages,
	})
	if err != nil {
		return fmt.Errorf("failed to open upstream stream: %w", err)
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	header.Set(ConversationIDHeader, conversationID)
	w.WriteHeader(http.StatusOK)

	result, relayErr := RelayStream(stream, w, flusher)
	if relayErr != nil {
		// The client saw the in-band error event; the turn is not
		// finalized and session memory is untouched.
		log.Printf("ERROR: stream interrupted for conversation %s: %v", conversationID, relayErr)
		return nil
	}

	handedOff = true
	e.tasks.Submit(Task{
		Name:    "finalize-turn " + conversationID,
		Cleanup: unlock,
		Fn:      e.postStreamTask(conversationID, req, result, client),
	})
	return nil
}

// postStreamTask builds the background continuation of a streamed turn:
// finalize durably, then best-effort summarize, then trim. The finalize
// step is idempotent across task retries; summarize and trim run once
// finalize has succeeded and their failures never fail the task.
func (e *Engine) postStreamTask(conversationID string, req TurnRequest, result RelayResult, client *provider.Client) func(ctx context.Context) error {
	finalized := false
	return func(ctx context.Context) error {
		if !finalized {
			if err := e.finalizer.FinalizeTurn(ctx, conversationID, req.Input, result); err != nil {
				return err
			}
			finalized = true
		}

		summaryCtx, cancel := context.WithTimeout(ctx, e.cfg.SummaryTimeout)
		defer cancel()
		// Failures roll back and are logged inside the summarizer; the
		// next qualifying turn retries.
		_ = e.summarizer.MaybeSummarize(summaryCtx, conversationID, req.ModelID, client)

		// Safety net independent of summarization: bound growth even
		// when summarization keeps failing.
		e.sessions.Trim(conversationID, 2*memory.MaxHistoryMessages)
		return nil
	}
}

func (e *Engine) resolveConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, bool, error) {
	if conversationID == "" {
		now := time.Now()
		conv := &domain.Conversation{
			ConversationID: uuid.New().String(),
			UserID:         userID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := e.store.CreateConversation(ctx, conv); err != nil {
			return nil, false, fmt.Errorf("failed to create conversation: %w", err)
		}
		return conv, true, nil
	}

	conv, err := e.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load conversation: %w", err)
	}
	if conv == nil || conv.UserID != userID {
		return nil, false, ErrConversationNotFound
	}
	return conv, false, nil
}
