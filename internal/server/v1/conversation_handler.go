package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/maeum-ai/maeum-api/internal/server/middleware"
	"github.com/maeum-ai/maeum-api/internal/server/validator"
	"github.com/maeum-ai/maeum-api/internal/store"
	"github.com/maeum-ai/maeum-api/internal/store/model"
	"github.com/maeum-ai/maeum-api/pkg/api"
)

type ConversationHandler struct {
	repo      store.Repository
	validator *validator.Validator
	defModel  string
}

func NewConversationHandler(repo store.Repository, v *validator.Validator, defaultModel string) *ConversationHandler {
	return &ConversationHandler{
		repo:      repo,
		validator: v,
		defModel:  defaultModel,
	}
}

func (h *ConversationHandler) Create(c *gin.Context) {
	var req api.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(h.validator.ParseError(err)))
		return
	}

	modelID := req.ModelID
	if modelID == "" {
		modelID = h.defModel
	}

	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:        uuid.NewString(),
		UserID:    middleware.VisitorID(c.Request.Context()),
		ModelID:   modelID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Title != "" {
		conv.Title.String = req.Title
		conv.Title.Valid = true
	}

	if err := h.repo.Conversations().Create(c.Request.Context(), conv); err != nil {
		_ = c.Error(api.InternalError("Failed to create conversation", err))
		return
	}

	c.JSON(http.StatusCreated, toConversation(conv))
}

func (h *ConversationHandler) List(c *gin.Context) {
	visitorID := middleware.VisitorID(c.Request.Context())

	convs, err := h.repo.Conversations().ListByUser(c.Request.Context(), visitorID)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to list conversations", err))
		return
	}

	out := make([]api.Conversation, 0, len(convs))
	for i := range convs {
		out = append(out, toConversation(&convs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *ConversationHandler) Get(c *gin.Context) {
	conv, err := h.repo.Conversations().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(api.NotFoundError("conversation not found"))
		return
	}

	c.JSON(http.StatusOK, toConversation(conv))
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	conv, err := h.repo.Conversations().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(api.NotFoundError("conversation not found"))
		return
	}
	if conv.DeleteLocked {
		_ = c.Error(api.BadRequestError("conversation is locked against deletion"))
		return
	}

	if err := h.repo.Conversations().Delete(c.Request.Context(), conv.ID); err != nil {
		_ = c.Error(api.InternalError("Failed to delete conversation", err))
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ConversationHandler) ListMessages(c *gin.Context) {
	if _, err := h.repo.Conversations().Get(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(api.NotFoundError("conversation not found"))
		return
	}

	msgs, err := h.repo.Messages().ListByConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(api.InternalError("Failed to list messages", err))
		return
	}

	out := make([]api.Message, 0, len(msgs))
	for i := range msgs {
		out = append(out, toMessage(&msgs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// EditMessage replaces a message's content in place. Edits are replacements,
// not versions; prior content is not retained.
func (h *ConversationHandler) EditMessage(c *gin.Context) {
	var req api.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(h.validator.ParseError(err)))
		return
	}

	if err := h.repo.Messages().UpdateContent(c.Request.Context(), c.Param("id"), req.Content); err != nil {
		_ = c.Error(api.NotFoundError("message not found"))
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ConversationHandler) DeleteMessage(c *gin.Context) {
	if err := h.repo.Messages().SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(api.NotFoundError("message not found"))
		return
	}

	c.Status(http.StatusNoContent)
}

func toConversation(conv *model.Conversation) api.Conversation {
	out := api.Conversation{
		ID:           conv.ID,
		ModelID:      conv.ModelID,
		DeleteLocked: conv.DeleteLocked,
		CreatedAt:    conv.CreatedAt,
	}
	if conv.Title.Valid {
		out.Title = conv.Title.String
	}
	return out
}

func toMessage(msg *model.Message) api.Message {
	out := api.Message{
		ID:        msg.ID,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	if msg.ModelID.Valid {
		out.ModelID = msg.ModelID.String
	}
	if msg.InputTokens.Valid {
		v := int(msg.InputTokens.Int64)
		out.InputTokens = &v
	}
	if msg.OutputTokens.Valid {
		v := int(msg.OutputTokens.Int64)
		out.OutputTokens = &v
	}
	if msg.CostUSD.Valid {
		v := msg.CostUSD.Float64
		out.CostUSD = &v
	}
	return out
}
