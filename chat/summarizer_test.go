package chat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/memochat/memochat/domain"
	"github.com/memochat/memochat/memory"
	"github.com/memochat/memochat/provider"
	"github.com/memochat/memochat/store"
	"github.com/memochat/memochat/tests/helpers"
)

const validSummary = "The user is planning a hiking trip in the Alps, prefers short answers, and still wants gear recommendations."

func seedSession(sessions *memory.SessionStore, conversationID string, count int) {
	turns := make([]memory.Turn, count)
	for i := range turns {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		turns[i] = memory.Turn{Role: role, Content: fmt.Sprintf("msg-%d", i)}
	}
	sessions.ApplySummary(conversationID, "", turns)
}

func summaryServer(t *testing.T, calls *int, summary string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"s1","choices":[{"index":0,"message":{"role":"assistant","content":%q}}]}`, summary)
	}))
	t.Cleanup(server.Close)
	return server
}

func newSummarizerFixture(t *testing.T) (*Summarizer, *store.SQLiteStore, *memory.SessionStore) {
	t.Helper()
	st := helpers.NewTestSQLiteStore(t)
	sessions := memory.NewSessionStore()

	ctx := context.Background()
	if err := st.CreateUser(ctx, &domain.User{UserID: "u1", Username: "alice", PasswordHash: "h", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	now := time.Now()
	if err := st.CreateConversation(ctx, &domain.Conversation{ConversationID: "c1", UserID: "u1", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	s := NewSummarizer(st, sessions)
	s.retryBackoff = time.Millisecond
	return s, st, sessions
}

func TestMaybeSummarizeBelowThresholdNoop(t *testing.T) {
	s, _, sessions := newSummarizerFixture(t)
	seedSession(sessions, "c1", summaryTriggerMessageCount)

	calls := 0
	server := summaryServer(t, &calls, validSummary)
	client := provider.NewClient(server.URL, "sk-test", time.Second)

	if err := s.MaybeSummarize(context.Background(), "c1", "deepseek-r1", client); err != nil {
		t.Fatalf("MaybeSummarize failed: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no provider call at exactly %d messages, got %d", summaryTriggerMessageCount, calls)
	}
	if sessions.Len("c1") != summaryTriggerMessageCount {
		t.Fatalf("session mutated below threshold")
	}
}

func TestMaybeSummarizeTriggersAboveThreshold(t *testing.T) {
	s, st, sessions := newSummarizerFixture(t)
	seedSession(sessions, "c1", summaryTriggerMessageCount+1)

	calls := 0
	server := summaryServer(t, &calls, validSummary)
	client := provider.NewClient(server.URL, "sk-test", time.Second)

	if err := s.MaybeSummarize(context.Background(), "c1", "deepseek-r1", client); err != nil {
		t.Fatalf("MaybeSummarize failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", calls)
	}

	sess := sessions.GetOrCreate("c1")
	if sess.Summary != validSummary {
		t.Fatalf("expected summary applied, got %q", sess.Summary)
	}
	if len(sess.Messages) != recentMessagesAfterSummary {
		t.Fatalf("expected %d retained messages, got %d", recentMessagesAfterSummary, len(sess.Messages))
	}
	// The tail is the most recent messages, in order.
	if sess.Messages[len(sess.Messages)-1].Content != fmt.Sprintf("msg-%d", summaryTriggerMessageCount) {
		t.Fatalf("unexpected retained tail end: %+v", sess.Messages[len(sess.Messages)-1])
	}

	conv, err := st.GetConversation(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if conv.Summary != validSummary {
		t.Fatalf("expected durable summary, got %q", conv.Summary)
	}
}

func TestMaybeSummarizeShortSummaryRollsBack(t *testing.T) {
	s, st, sessions := newSummarizerFixture(t)
	seedSession(sessions, "c1", summaryTriggerMessageCount+2)
	before := sessions.GetOrCreate("c1")

	calls := 0
	server := summaryServer(t, &calls, "too short")
	client := provider.NewClient(server.URL, "sk-test", time.Second)

	if err := s.MaybeSummarize(context.Background(), "c1", "deepseek-r1", client); err == nil {
		t.Fatalf("expected error for short summary")
	}

	after := sessions.GetOrCreate("c1")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("session changed after failed attempt:\nbefore %+v\nafter  %+v", before, after)
	}

	conv, _ := st.GetConversation(context.Background(), "c1")
	if conv.Summary != "" {
		t.Fatalf("expected no durable summary, got %q", conv.Summary)
	}
}

func TestMaybeSummarizeProviderErrorRollsBack(t *testing.T) {
	s, _, sessions := newSummarizerFixture(t)
	seedSession(sessions, "c1", summaryTriggerMessageCount+2)
	before := sessions.GetOrCreate("c1")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	t.Cleanup(server.Close)
	client := provider.NewClient(server.URL, "sk-test", time.Second)

	if err := s.MaybeSummarize(context.Background(), "c1", "deepseek-r1", client); err == nil {
		t.Fatalf("expected provider error")
	}

	after := sessions.GetOrCreate("c1")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("session changed after failed attempt")
	}
}

// failingSummaryStore makes the durable summary write fail while
// delegating everything else.
type failingSummaryStore struct {
	*store.SQLiteStore
	attempts int
}

func (f *failingSummaryStore) UpdateConversationSummary(ctx context.Context, conversationID, summary string) error {
	f.attempts++
	return fmt.Errorf("disk on fire")
}

func TestMaybeSummarizeDurableFailureRollsBackAfterRetries(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	failing := &failingSummaryStore{SQLiteStore: st}
	sessions := memory.NewSessionStore()

	s := NewSummarizer(failing, sessions)
	s.retryBackoff = time.Millisecond

	seedSession(sessions, "c1", summaryTriggerMessageCount+2)
	before := sessions.GetOrCreate("c1")

	calls := 0
	server := summaryServer(t, &calls, validSummary)
	client := provider.NewClient(server.URL, "sk-test", time.Second)

	if err := s.MaybeSummarize(context.Background(), "c1", "deepseek-r1", client); err == nil {
		t.Fatalf("expected durable write failure")
	}
	if failing.attempts != summaryWriteAttempts {
		t.Fatalf("expected %d write attempts, got %d", summaryWriteAttempts, failing.attempts)
	}

	after := sessions.GetOrCreate("c1")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("session changed after exhausted retries:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestMaybeSummarizeTranscriptFormat(t *testing.T) {
	s, _, sessions := newSummarizerFixture(t)
	seedSession(sessions, "c1", summaryTriggerMessageCount+1)

	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"s1","choices":[{"index":0,"message":{"role":"assistant","content":%q}}]}`, validSummary)
	}))
	t.Cleanup(server.Close)
	client := provider.NewClient(server.URL, "sk-test", time.Second)

	if err := s.MaybeSummarize(context.Background(), "c1", "deepseek-r1", client); err != nil {
		t.Fatalf("MaybeSummarize failed: %v", err)
	}

	if !strings.Contains(gotBody, "USER: msg-0") {
		t.Fatalf("expected uppercase role transcript, got %s", gotBody)
	}
	if !strings.Contains(gotBody, "ASSISTANT: msg-1") {
		t.Fatalf("expected assistant line in transcript, got %s", gotBody)
	}
}
