package api

import "time"

// Conversation is the public view of a conversation row.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	ModelID      string    `json:"modelId"`
	DeleteLocked bool      `json:"deleteLocked"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Message is the public view of a persisted message. Usage fields are only
// present on assistant turns whose vendor reported them.
type Message struct {
	ID           string    `json:"id"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	ModelID      string    `json:"modelId,omitempty"`
	InputTokens  *int      `json:"inputTokens,omitempty"`
	OutputTokens *int      `json:"outputTokens,omitempty"`
	CostUSD      *float64  `json:"costUsd,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Model describes one selectable model with its pricing.
type Model struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Vendor              string  `json:"vendor"`
	InputUSDPerMillion  float64 `json:"inputUsdPerMillion"`
	OutputUSDPerMillion float64 `json:"outputUsdPerMillion"`
}
