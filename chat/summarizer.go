package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/memochat/memochat/memory"
	"github.com/memochat/memochat/provider"
	"github.com/memochat/memochat/store"
)

const (
	// summaryTriggerMessageCount is the session length above which a
	// summarization attempt runs. The comparison is strictly greater
	// than, so a session of exactly 24 messages is left alone.
	summaryTriggerMessageCount = 24

	// recentMessagesAfterSummary is how many raw messages survive a
	// successful summarization.
	recentMessagesAfterSummary = 10

	// minSummaryLength guards against truncated or degenerate provider
	// responses; anything shorter is treated as a failure.
	minSummaryLength = 50

	summaryMaxTokens     = 256
	summaryWriteAttempts = 3
)

// Summarizer compresses older session history into a short summary. The
// summary is durably written to the conversation record before session
// memory is mutated; a failure anywhere leaves the session exactly as it
// was.
type Summarizer struct {
	store    store.Store
	sessions *memory.SessionStore

	// retryBackoff is multiplied by the attempt number between durable
	// write retries. Shortened in tests.
	retryBackoff time.Duration
}

// NewSummarizer creates a summarizer over the given durable store and
// session cache.
func NewSummarizer(st store.Store, sessions *memory.SessionStore) *Summarizer {
	return &Summarizer{
		store:        st,
		sessions:     sessions,
		retryBackoff: 500 * time.Millisecond,
	}
}

// MaybeSummarize runs one summarization attempt if the session has grown
// past the trigger threshold. It is best-effort: on any failure the
// session is rolled back to its pre-attempt state and the history simply
// keeps growing until a later turn retries.
func (s *Summarizer) MaybeSummarize(ctx context.Context, conversationID, modelID string, client *provider.Client) error {
	if s.sessions.Len(conversationID) <= summaryTriggerMessageCount {
		return nil
	}

	snap := s.sessions.Snapshot(conversationID)
	sess := s.sessions.GetOrCreate(conversationID)

	var transcript strings.Builder
	for i, m := range sess.Messages {
		if i > 0 {
			transcript.WriteString("\n")
		}
		transcript.WriteString(strings.ToUpper(string(m.Role)))
		transcript.WriteString(": ")
		transcript.WriteString(m.Content)
	}

	maxTokens := summaryMaxTokens
	resp, err := client.CreateChatCompletion(ctx, &provider.ChatCompletionRequest{
		Model: modelID,
		Messages: []provider.ChatMessage{
			{
				Role:    "system",
				Content: "You are summarizing a conversation so a future assistant can recall user preferences, facts, and pending questions.",
			},
			{
				Role:    "user",
				Content: "Please summarize the key details and open threads from the conversation below so it can be recalled later. Keep it brief but comprehensive.\n\n" + transcript.String(),
			},
		},
		MaxTokens: &maxTokens,
	})
	if err != nil {
		s.sessions.Restore(conversationID, snap)
		log.Printf("ERROR: summarization call failed for conversation %s: %v", conversationID, err)
		return err
	}

	var summary string
	if len(resp.Choices) > 0 && resp.Choices[0].Message != nil {
		summary = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if len(summary) < minSummaryLength {
		s.sessions.Restore(conversationID, snap)
		err := fmt.Errorf("summary too short (%d chars)", len(summary))
		log.Printf("ERROR: summarization rejected for conversation %s: %v", conversationID, err)
		return err
	}

	// Durable write first. Raw messages are only dropped once the
	// summary is known to be persisted, so a crash in between can never
	// leave the cache ahead of the durable store.
	var writeErr error
	for attempt := 1; attempt <= summaryWriteAttempts; attempt++ {
		writeErr = s.store.UpdateConversationSummary(ctx, conversationID, summary)
		if writeErr == nil {
			break
		}
		if attempt < summaryWriteAttempts {
			time.Sleep(time.Duration(attempt) * s.retryBackoff)
		}
	}
	if writeErr != nil {
		s.sessions.Restore(conversationID, snap)
		log.Printf("ERROR: failed to persist summary for conversation %s after %d attempts: %v",
			conversationID, summaryWriteAttempts, writeErr)
		return writeErr
	}

	tail := sess.Messages
	if len(tail) > recentMessagesAfterSummary {
		tail = tail[len(tail)-recentMessagesAfterSummary:]
	}
	s.sessions.ApplySummary(conversationID, summary, tail)
	return nil
}
