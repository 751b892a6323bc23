package api

// TurnRequest is the inbound body for one conversation turn. Empty content
// with Continue set asks the assistant to keep producing output against the
// existing history without creating a new user message.
type TurnRequest struct {
	Content  string `json:"content"`
	Continue bool   `json:"continue,omitempty"`
}

// CreateConversationRequest opens a new conversation for the visitor.
type CreateConversationRequest struct {
	ModelID string `json:"modelId,omitempty"`
	Title   string `json:"title,omitempty"`
}

// EditMessageRequest replaces a message's content in place.
type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}
