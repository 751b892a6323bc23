package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/maeum-ai/maeum-api/internal/llm"
	"github.com/maeum-ai/maeum-api/pkg/api"
)

// transportFailureContent is shown when the stream drops with no terminal
// event. Client-local only; the server's own failure persistence is the
// authority and the display may diverge until the next history reload.
const transportFailureContent = "연결이 끊어졌어요. 잠시 후에 다시 시도해 주세요."

// SendState tracks one in-flight send.
type SendState int

const (
	SendIdle SendState = iota
	SendSent
	SendStreaming
	SendSettled
	SendErrored
)

// ReconciledMessage is one client-local transcript entry. LocalID exists
// before any network round trip; ServerID is attached when the matching wire
// event arrives.
type ReconciledMessage struct {
	LocalID      string
	ServerID     string
	Role         string
	Content      string
	CreatedAt    time.Time
	IsStreaming  bool
	ModelID      string
	InputTokens  *int
	OutputTokens *int
	CostUSD      *float64
}

// Reconciler is the caller-side counterpart of the turn stream: it maintains
// an optimistic transcript and folds wire events into it. Pure consumer; it
// performs no I/O and never persists anything.
type Reconciler struct {
	state      SendState
	transcript []ReconciledMessage

	// indices of the in-flight optimistic entries, -1 when absent
	userIdx      int
	assistantIdx int
}

func NewReconciler() *Reconciler {
	return &Reconciler{state: SendIdle, userIdx: -1, assistantIdx: -1}
}

func (r *Reconciler) State() SendState                { return r.state }
func (r *Reconciler) Transcript() []ReconciledMessage { return r.transcript }

// Submit registers a send. Non-empty content appends an optimistic user
// entry; a streaming assistant placeholder is always appended. At most one
// entry is streaming at a time.
func (r *Reconciler) Submit(content string) {
	r.userIdx, r.assistantIdx = -1, -1

	if content != "" {
		r.transcript = append(r.transcript, ReconciledMessage{
			LocalID:   uuid.NewString(),
			Role:      llm.RoleUser,
			Content:   content,
			CreatedAt: time.Now(),
		})
		r.userIdx = len(r.transcript) - 1
	}

	r.transcript = append(r.transcript, ReconciledMessage{
		LocalID:     uuid.NewString(),
		Role:        llm.RoleAssistant,
		IsStreaming: true,
		CreatedAt:   time.Now(),
	})
	r.assistantIdx = len(r.transcript) - 1
	r.state = SendSent
}

// Apply folds one wire event into the transcript.
func (r *Reconciler) Apply(event api.Event) {
	switch event.Kind {
	case api.EventUserMessage:
		p, ok := event.Payload.(api.UserMessagePayload)
		if !ok || r.userIdx < 0 {
			return
		}
		// content was already correct locally; only identity is reconciled
		entry := &r.transcript[r.userIdx]
		entry.ServerID = p.ID
		entry.CreatedAt = p.CreatedAt

	case api.EventChunk:
		p, ok := event.Payload.(api.ChunkPayload)
		if !ok || r.assistantIdx < 0 {
			return
		}
		entry := &r.transcript[r.assistantIdx]
		entry.Content += p.Content
		// first fragment replaces the loading indicator
		entry.IsStreaming = false
		r.state = SendStreaming

	case api.EventDone:
		p, ok := event.Payload.(api.DonePayload)
		if !ok || r.assistantIdx < 0 {
			return
		}
		entry := &r.transcript[r.assistantIdx]
		entry.ServerID = p.AssistantMessageID
		entry.CreatedAt = p.CreatedAt
		entry.ModelID = p.Model
		entry.InputTokens = p.InputTokens
		entry.OutputTokens = p.OutputTokens
		entry.CostUSD = p.Cost
		entry.IsStreaming = false
		r.state = SendSettled

	case api.EventError:
		p, ok := event.Payload.(api.ErrorPayload)
		if !ok || r.assistantIdx < 0 {
			return
		}
		entry := &r.transcript[r.assistantIdx]
		entry.ServerID = p.AssistantMessageID
		entry.Content = p.Content
		entry.IsStreaming = false
		r.state = SendErrored
	}
}

// FailTransport handles a dropped connection: if no terminal event ever
// arrived, the pending entry becomes a synthesized local failure bubble.
func (r *Reconciler) FailTransport() {
	if r.state == SendSettled || r.state == SendErrored {
		return
	}
	if r.assistantIdx >= 0 {
		entry := &r.transcript[r.assistantIdx]
		if entry.Content == "" {
			entry.Content = transportFailureContent
		}
		entry.IsStreaming = false
	}
	r.state = SendErrored
}
