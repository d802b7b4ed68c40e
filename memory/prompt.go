package memory

import (
	"github.com/memochat/memochat/provider"
)

// MaxHistoryMessages is the number of recent raw messages included
// verbatim in a built prompt.
const MaxHistoryMessages = 20

// BuildPrompt assembles the model message list for one turn: the summary
// as a synthetic system message when present, the last
// MaxHistoryMessages session messages in original order, and the new
// user input last. The result never exceeds MaxHistoryMessages+2
// entries, whatever the session size.
func BuildPrompt(sess Session, userInput string) []provider.ChatMessage {
	var messages []provider.ChatMessage

	if sess.Summary != "" {
		messages = append(messages, provider.ChatMessage{
			Role: "system",
			Content: "Conversation memory:\n" + sess.Summary +
				"\n\nUse the summary plus the recent messages to respond.",
		})
	}

	recent := sess.Messages
	if len(recent) > MaxHistoryMessages {
		recent = recent[len(recent)-MaxHistoryMessages:]
	}
	for _, m := range recent {
		messages = append(messages, provider.ChatMessage{Role: string(m.Role), Content: m.Content})
	}

	messages = append(messages, provider.ChatMessage{Role: "user", Content: userInput})
	return messages
}
