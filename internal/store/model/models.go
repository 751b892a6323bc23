package model

import (
	"database/sql"
	"time"
)

// Message roles. The gateway only ever persists these two; system prompts are
// resolved per turn and never written to the messages table.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Prompt template kinds.
const (
	PromptKindBase     = "base"
	PromptKindIntimacy = "intimacy"
)

// Conversation groups the messages of one visitor session with a model
// selection. ModelID is the per-conversation default read at the start of
// each turn.
type Conversation struct {
	ID           string         `db:"id" json:"id"`
	UserID       string         `db:"user_id" json:"user_id"`
	Title        sql.NullString `db:"title" json:"title,omitempty"`
	ModelID      string         `db:"model_id" json:"model_id"`
	DeleteLocked bool           `db:"delete_locked" json:"delete_locked"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Message is one persisted turn. Usage columns are nullable: a null token
// count means the vendor did not report usage, which must never be collapsed
// into zero. CostUSD is only set when both token counts are present.
type Message struct {
	ID             string          `db:"id" json:"id"`
	ConversationID string          `db:"conversation_id" json:"conversation_id"`
	Role           string          `db:"role" json:"role"`
	Content        string          `db:"content" json:"content"`
	ModelID        sql.NullString  `db:"model_id" json:"model_id,omitempty"`
	InputTokens    sql.NullInt64   `db:"input_tokens" json:"input_tokens,omitempty"`
	OutputTokens   sql.NullInt64   `db:"output_tokens" json:"output_tokens,omitempty"`
	CostUSD        sql.NullFloat64 `db:"cost_usd" json:"cost_usd,omitempty"`
	IsDeleted      bool            `db:"is_deleted" json:"is_deleted"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// PromptTemplate is a persisted system-prompt fragment. Kind "base" rows have
// a null intimacy level; kind "intimacy" rows are keyed by the exact level.
type PromptTemplate struct {
	ID            string        `db:"id" json:"id"`
	Kind          string        `db:"kind" json:"kind"`
	IntimacyLevel sql.NullInt64 `db:"intimacy_level" json:"intimacy_level,omitempty"`
	Content       string        `db:"content" json:"content"`
	IsActive      bool          `db:"is_active" json:"is_active"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}
