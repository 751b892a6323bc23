package chat

import "github.com/maeum-ai/maeum-api/internal/llm"

// syntheticGreeting is the placeholder user turn prepended when a history
// opens with an assistant message. It exists only in the prompt view and is
// never persisted.
const syntheticGreeting = "(첫 인사)"

// Normalize repairs the structural constraint shared by all vendor backends:
// the first turn handed upstream must be user-authored. If the history opens
// with an assistant turn, a synthetic user greeting is prepended. The result
// is always a fresh slice; callers must not assume aliasing.
func Normalize(turns []llm.Turn) []llm.Turn {
	out := make([]llm.Turn, 0, len(turns)+1)
	if len(turns) > 0 && turns[0].Role == llm.RoleAssistant {
		out = append(out, llm.Turn{Role: llm.RoleUser, Content: syntheticGreeting})
	}
	return append(out, turns...)
}
