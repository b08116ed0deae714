package llm

import "strings"

// BuildMessages assembles the ordered message list for one call: an optional
// leading system message, each history turn as a user/assistant pair, and the
// current user message last. The caller's history is never mutated; the
// returned slice is freshly allocated per call.
func BuildMessages(current, systemPrompt string, history []HistoryTurn) []Message {
	messages := make([]Message, 0, 2*len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	for _, turn := range history {
		messages = append(messages,
			Message{Role: RoleUser, Content: turn.User},
			Message{Role: RoleAssistant, Content: turn.Assistant},
		)
	}
	return append(messages, Message{Role: RoleUser, Content: current})
}

// ParseStopSequences converts comma-separated user input into a clean list,
// trimming whitespace and dropping empty items. Empty or whitespace-only
// input yields nil, as does input that reduces to nothing after cleaning.
func ParseStopSequences(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
