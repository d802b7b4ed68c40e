// Package chat implements the streaming conversation engine: the relay
// that bridges upstream token streams to client SSE, the persistence
// finalizer, the summarizer, and the per-turn coordinator.
package chat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/memochat/memochat/domain"
	"github.com/memochat/memochat/provider"
)

// RelayResult holds the fully accumulated text of a completed stream.
type RelayResult struct {
	Content   string
	Reasoning string
}

// RelayStream consumes an open upstream completion stream, forwarding
// each non-empty delta to the client as one SSE event in arrival order
// while accumulating the full content and reasoning.
//
// On clean upstream completion it writes the [DONE] sentinel and returns
// the accumulated result. On an upstream failure it writes one in-band
// error event (best-effort) and returns the error. A failed client write
// stops further writes but never stops upstream consumption, so the
// accumulated result stays complete even after a client disconnect. The
// stream is closed on every exit path.
func RelayStream(stream *provider.ChatCompletionStream, w io.Writer, flusher http.Flusher) (RelayResult, error) {
	defer stream.Close()

	var result RelayResult
	clientGone := false

	writeEvent := func(event domain.StreamEvent) {
		if clientGone {
			return
		}
		data, err := json.Marshal(event)
		if err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			clientGone = true
			return
		}
		flusher.Flush()
	}

	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Best-effort in-band error; a failure to write it is
			// swallowed.
			writeEvent(domain.StreamEvent{
				Type:    domain.StreamEventError,
				Content: "Stream interrupted unexpectedly.",
			})
			return result, err
		}

		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta == nil {
			continue
		}
		delta := chunk.Choices[0].Delta

		if delta.Content != "" {
			result.Content += delta.Content
			writeEvent(domain.StreamEvent{Type: domain.StreamEventContent, Content: delta.Content})
		} else if delta.ReasoningContent != "" {
			result.Reasoning += delta.ReasoningContent
			writeEvent(domain.StreamEvent{Type: domain.StreamEventReasoning, Content: delta.ReasoningContent})
		}
	}

	if !clientGone {
		if _, err := fmt.Fprint(w, "data: [DONE]\n\n"); err == nil {
			flusher.Flush()
		}
	}
	return result, nil
}
