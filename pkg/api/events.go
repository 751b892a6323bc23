package api

import "time"

// EventKind tags a single server-sent event on the turn stream.
type EventKind string

const (
	// EventUserMessage acknowledges the persisted user turn. Emitted at most
	// once, before any vendor latency is incurred.
	EventUserMessage EventKind = "userMessage"
	// EventChunk carries one incremental text fragment of the assistant reply.
	EventChunk EventKind = "chunk"
	// EventDone is the success terminal event. Exactly one terminal event
	// (done or error) is emitted per stream, and it is the last event.
	EventDone EventKind = "done"
	// EventError is the failure terminal event, mutually exclusive with done.
	EventError EventKind = "error"
)

// Event is one wire-level stream event: a kind tag plus a JSON payload.
// Events are transient; they are never persisted or replayed.
type Event struct {
	Kind    EventKind
	Payload any
}

// UserMessagePayload is the payload of a userMessage event.
type UserMessagePayload struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChunkPayload is the payload of a chunk event.
type ChunkPayload struct {
	Content string `json:"content"`
}

// DonePayload is the payload of the terminal done event. Token counts and
// cost are pointers: absent means the vendor did not report usage, which is
// distinct from zero.
type DonePayload struct {
	AssistantMessageID string    `json:"assistantMessageId"`
	CreatedAt          time.Time `json:"createdAt"`
	Model              string    `json:"model"`
	InputTokens        *int      `json:"inputTokens"`
	OutputTokens       *int      `json:"outputTokens"`
	Cost               *float64  `json:"cost"`
}

// ErrorPayload is the payload of the terminal error event. Content is the
// user-facing failure text that was persisted as the assistant turn.
type ErrorPayload struct {
	AssistantMessageID string `json:"assistantMessageId"`
	Content            string `json:"content"`
}
