// ABOUTME: Builds the bounded context text sent to the inference endpoint
// ABOUTME: Trailing history window rendered as "User:"/"Assistant:" lines plus the new input

// Package composer turns a conversation's trailing history and a new user
// input into the single text payload the agent gateway sends.
package composer

import (
	"strings"

	"github.com/Lyzr-Apps/ultimate-super-space/internal/conversation"
)

// HistoryWindow is the maximum number of prior messages included
const HistoryWindow = 10

// BuildContext renders the last HistoryWindow messages of history followed
// by "User: <newText>". With no history, newText is returned unchanged.
// history must not already contain newText's message.
func BuildContext(history []*conversation.Message, newText string) string {
	if len(history) == 0 {
		return newText
	}

	start := max(len(history)-HistoryWindow, 0)

	var b strings.Builder
	for _, m := range history[start:] {
		b.WriteString(roleLabel(m.Sender))
		b.WriteString(": ")
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(newText)
	return b.String()
}

func roleLabel(sender conversation.Sender) string {
	if sender == conversation.SenderUser {
		return "User"
	}
	return "Assistant"
}
