package llm

import "context"

// Family identifies a vendor backend family. Adapter selection is a static
// tag on the model descriptor, not inheritance.
type Family string

const (
	FamilyOpenAI    Family = "openai"
	FamilyAnthropic Family = "anthropic"
	FamilyGoogle    Family = "google"
)

// Gateway-canonical role names. Adapters map these to the vendor's own role
// vocabulary.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one role-tagged message of the prompt history. Value type; turns
// are an ephemeral view over persisted messages.
type Turn struct {
	Role    string
	Content string
}

// Request is the provider-agnostic prompt handed to an adapter. Model is the
// vendor's technical model identifier (already resolved by the caller).
type Request struct {
	System    string
	Turns     []Turn
	Model     string
	MaxTokens int
}

// Result is the canonical outcome of a completed vendor call. Token counts
// are nil when the vendor did not report usage; extraction failures never
// fail the call.
type Result struct {
	Content      string
	Model        string
	InputTokens  *int
	OutputTokens *int
}

// EventKind tags one adapter stream event.
type EventKind int

const (
	// KindChunk carries an incremental text fragment.
	KindChunk EventKind = iota
	// KindDone is the success terminal event, carrying the full text and any
	// usage the vendor reported.
	KindDone
	// KindError is the failure terminal event.
	KindError
)

// StreamEvent is a tagged union: Text for KindChunk, Result for KindDone,
// Err for KindError. Every stream delivers zero or more chunks followed by
// exactly one terminal event, then the channel closes. No events follow a
// terminal event, including when the vendor connection drops mid-stream.
type StreamEvent struct {
	Kind   EventKind
	Text   string
	Result *Result
	Err    error
}

// Provider is the common adapter contract. Stream must be satisfied even by
// families without native streaming support, by completing synchronously and
// replaying the text as a single chunk followed by done; callers cannot
// distinguish the two.
type Provider interface {
	Name() string
	Family() Family
	Complete(ctx context.Context, req *Request) (*Result, error)
	Stream(ctx context.Context, req *Request) (<-chan StreamEvent, error)
	Health(ctx context.Context) error
}
