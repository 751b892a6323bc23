package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maeum-ai/maeum-api/internal/chat"
	"github.com/maeum-ai/maeum-api/internal/config"
	"github.com/maeum-ai/maeum-api/internal/llm"
	"github.com/maeum-ai/maeum-api/internal/pricing"
	"github.com/maeum-ai/maeum-api/internal/prompt"
	"github.com/maeum-ai/maeum-api/internal/server/middleware"
	"github.com/maeum-ai/maeum-api/internal/server/validator"
	"github.com/maeum-ai/maeum-api/internal/store"
	"github.com/maeum-ai/maeum-api/internal/store/cache"
	"github.com/maeum-ai/maeum-api/internal/store/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRepo struct {
	conv *model.Conversation
	msgs []model.Message
}

func (s *stubRepo) Conversations() store.ConversationRepository { return &stubConversations{s} }
func (s *stubRepo) Messages() store.MessageRepository           { return &stubMessages{s} }
func (s *stubRepo) Prompts() store.PromptRepository             { return &stubPrompts{} }
func (s *stubRepo) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	return fn(s)
}
func (s *stubRepo) Close() error { return nil }

type stubConversations struct{ repo *stubRepo }

func (s *stubConversations) Create(ctx context.Context, conv *model.Conversation) error { return nil }
func (s *stubConversations) Get(ctx context.Context, id string) (*model.Conversation, error) {
	if s.repo.conv == nil || s.repo.conv.ID != id {
		return nil, errors.New("no rows")
	}
	return s.repo.conv, nil
}
func (s *stubConversations) ListByUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	return nil, nil
}
func (s *stubConversations) UpdateTitle(ctx context.Context, id, title string) error { return nil }
func (s *stubConversations) Delete(ctx context.Context, id string) error             { return nil }

type stubMessages struct{ repo *stubRepo }

func (s *stubMessages) Create(ctx context.Context, msg *model.Message) error {
	s.repo.msgs = append(s.repo.msgs, *msg)
	return nil
}
func (s *stubMessages) ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	return s.repo.msgs, nil
}
func (s *stubMessages) UpdateContent(ctx context.Context, id, content string) error { return nil }
func (s *stubMessages) SoftDelete(ctx context.Context, id string) error             { return nil }

type stubPrompts struct{}

func (s *stubPrompts) GetActiveBase(ctx context.Context) (*model.PromptTemplate, error) {
	return &model.PromptTemplate{Content: "base"}, nil
}
func (s *stubPrompts) GetActiveIntimacy(ctx context.Context, level int) (*model.PromptTemplate, error) {
	return &model.PromptTemplate{Content: "polite"}, nil
}

type stubProvider struct {
	events []llm.StreamEvent
}

func (p *stubProvider) Name() string       { return "stub" }
func (p *stubProvider) Family() llm.Family { return llm.FamilyOpenAI }
func (p *stubProvider) Complete(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	return nil, errors.New("not scripted")
}
func (p *stubProvider) Stream(ctx context.Context, req *llm.Request) (<-chan llm.StreamEvent, error) {
	ch := make(chan llm.StreamEvent)
	go func() {
		defer close(ch)
		for _, e := range p.events {
			ch <- e
		}
	}()
	return ch, nil
}
func (p *stubProvider) Health(ctx context.Context) error { return nil }

func newTestRouter(repo store.Repository, provider llm.Provider) *gin.Engine {
	gin.SetMode(gin.TestMode)

	resolver := prompt.NewResolver(repo.Prompts(), cache.NewNoopCache(), zap.NewNop())
	svc := chat.NewService(
		repo,
		map[llm.Family]llm.Provider{provider.Family(): provider},
		resolver,
		pricing.NewRegistry(),
		config.ChatConfig{DefaultModel: "gpt-4o-mini", TitleMaxLength: 50, IntimacyLevel: 1},
		zap.NewNop(),
	)

	router := gin.New()
	router.Use(middleware.ErrorHandler(zap.NewNop()))
	handler := NewChatHandler(svc, validator.New())
	router.POST("/v1/conversations/:id/stream", handler.StreamTurn)
	return router
}

// sseEvents parses "event:"/"data:" pairs out of a response body.
func sseEvents(t *testing.T, body string) []struct{ Kind, Data string } {
	t.Helper()
	var events []struct{ Kind, Data string }
	var kind string
	for _, line := range strings.Split(body, "\n") {
		switch {
		case strings.HasPrefix(line, "event: "):
			kind = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			events = append(events, struct{ Kind, Data string }{kind, strings.TrimPrefix(line, "data: ")})
		}
	}
	return events
}

func TestStreamTurn_SSEContract(t *testing.T) {
	repo := &stubRepo{conv: &model.Conversation{ID: "c1", ModelID: "gpt-4o-mini", CreatedAt: time.Now()}}
	provider := &stubProvider{events: []llm.StreamEvent{
		{Kind: llm.KindChunk, Text: "안녕"},
		{Kind: llm.KindDone, Result: &llm.Result{Content: "안녕", Model: "gpt-4o-mini"}},
	}}
	router := newTestRouter(repo, provider)

	req := httptest.NewRequest("POST", "/v1/conversations/c1/stream", strings.NewReader(`{"content": "안녕"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	events := sseEvents(t, w.Body.String())
	require.Len(t, events, 3)
	assert.Equal(t, "userMessage", events[0].Kind)
	assert.Equal(t, "chunk", events[1].Kind)
	// terminal event is last
	assert.Equal(t, "done", events[2].Kind)

	var done struct {
		AssistantMessageID string   `json:"assistantMessageId"`
		Model              string   `json:"model"`
		Cost               *float64 `json:"cost"`
	}
	require.NoError(t, json.Unmarshal([]byte(events[2].Data), &done))
	assert.NotEmpty(t, done.AssistantMessageID)
	assert.Equal(t, "gpt-4o-mini", done.Model)
}

func TestStreamTurn_ValidationIsPlainHTTP(t *testing.T) {
	repo := &stubRepo{conv: &model.Conversation{ID: "c1", ModelID: "gpt-4o-mini"}}
	router := newTestRouter(repo, &stubProvider{})

	req := httptest.NewRequest("POST", "/v1/conversations/c1/stream", strings.NewReader(`{"content": ""}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Header().Get("Content-Type"), "text/event-stream")
}

func TestStreamTurn_UnknownConversationIs404(t *testing.T) {
	router := newTestRouter(&stubRepo{}, &stubProvider{})

	req := httptest.NewRequest("POST", "/v1/conversations/missing/stream", strings.NewReader(`{"content": "안녕"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamTurn_VendorFailureIsInBand(t *testing.T) {
	repo := &stubRepo{conv: &model.Conversation{ID: "c1", ModelID: "gpt-4o-mini"}}
	provider := &stubProvider{events: []llm.StreamEvent{
		{Kind: llm.KindError, Err: errors.New("vendor down")},
	}}
	router := newTestRouter(repo, provider)

	req := httptest.NewRequest("POST", "/v1/conversations/c1/stream", strings.NewReader(`{"content": "안녕"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// stream already started with the userMessage event; failure is in-band
	assert.Equal(t, http.StatusOK, w.Code)
	events := sseEvents(t, w.Body.String())
	require.NotEmpty(t, events)
	assert.Equal(t, "error", events[len(events)-1].Kind)
}
