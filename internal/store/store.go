package store

import (
	"context"

	"github.com/maeum-ai/maeum-api/internal/store/model"
)

type contextKey string

// ContextKeyVisitorID carries the anonymous visitor id through a request.
const ContextKeyVisitorID contextKey = "visitor_id"

// Repository is the main contract for the data layer.
type Repository interface {
	Conversations() ConversationRepository
	Messages() MessageRepository
	Prompts() PromptRepository

	// transaction support
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	Close() error
}

type ConversationRepository interface {
	// Create opens a new conversation.
	Create(ctx context.Context, conv *model.Conversation) error
	// Get returns a conversation by id.
	Get(ctx context.Context, id string) (*model.Conversation, error)
	// ListByUser returns a visitor's conversations, newest first.
	ListByUser(ctx context.Context, userID string) ([]model.Conversation, error)
	// UpdateTitle sets the conversation title.
	UpdateTitle(ctx context.Context, id, title string) error
	// Delete removes a conversation unless it is delete-locked.
	Delete(ctx context.Context, id string) error
}

type MessageRepository interface {
	// Create persists one turn.
	Create(ctx context.Context, msg *model.Message) error
	// ListByConversation returns non-deleted messages in creation order.
	ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error)
	// UpdateContent replaces a message's content in place (edit/reroll).
	UpdateContent(ctx context.Context, id, content string) error
	// SoftDelete marks a message deleted without removing the row.
	SoftDelete(ctx context.Context, id string) error
}

type PromptRepository interface {
	// GetActiveBase returns the active base system prompt.
	GetActiveBase(ctx context.Context) (*model.PromptTemplate, error)
	// GetActiveIntimacy returns the active modifier for the exact level.
	GetActiveIntimacy(ctx context.Context, level int) (*model.PromptTemplate, error)
}
