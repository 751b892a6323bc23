package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/maeum-ai/maeum-api/internal/config"
	"github.com/maeum-ai/maeum-api/internal/llm"
	"github.com/maeum-ai/maeum-api/internal/pricing"
	"github.com/maeum-ai/maeum-api/internal/prompt"
	"github.com/maeum-ai/maeum-api/internal/store"
	"github.com/maeum-ai/maeum-api/internal/store/cache"
	"github.com/maeum-ai/maeum-api/internal/store/model"
	"github.com/maeum-ai/maeum-api/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// in-memory repository double

type fakeRepo struct {
	conversations *fakeConversations
	messages      *fakeMessages
	prompts       *fakePrompts
}

func newFakeRepo(conv *model.Conversation) *fakeRepo {
	return &fakeRepo{
		conversations: &fakeConversations{conv: conv, titles: map[string]string{}},
		messages:      &fakeMessages{},
		prompts:       &fakePrompts{},
	}
}

func (f *fakeRepo) Conversations() store.ConversationRepository { return f.conversations }
func (f *fakeRepo) Messages() store.MessageRepository           { return f.messages }
func (f *fakeRepo) Prompts() store.PromptRepository             { return f.prompts }
func (f *fakeRepo) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	return fn(f)
}
func (f *fakeRepo) Close() error { return nil }

type fakeConversations struct {
	conv   *model.Conversation
	titles map[string]string
}

func (f *fakeConversations) Create(ctx context.Context, conv *model.Conversation) error { return nil }
func (f *fakeConversations) Get(ctx context.Context, id string) (*model.Conversation, error) {
	if f.conv == nil || f.conv.ID != id {
		return nil, errors.New("no rows")
	}
	return f.conv, nil
}
func (f *fakeConversations) ListByUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	return nil, nil
}
func (f *fakeConversations) UpdateTitle(ctx context.Context, id, title string) error {
	f.titles[id] = title
	return nil
}
func (f *fakeConversations) Delete(ctx context.Context, id string) error { return nil }

type fakeMessages struct {
	rows []model.Message
	// createErr fails creates for the given role only
	createErr     error
	createErrRole string
}

func (f *fakeMessages) Create(ctx context.Context, msg *model.Message) error {
	if f.createErr != nil && (f.createErrRole == "" || f.createErrRole == msg.Role) {
		return f.createErr
	}
	f.rows = append(f.rows, *msg)
	return nil
}
func (f *fakeMessages) ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	return f.rows, nil
}
func (f *fakeMessages) UpdateContent(ctx context.Context, id, content string) error { return nil }
func (f *fakeMessages) SoftDelete(ctx context.Context, id string) error             { return nil }

type fakePrompts struct{}

func (f *fakePrompts) GetActiveBase(ctx context.Context) (*model.PromptTemplate, error) {
	return &model.PromptTemplate{Content: "base"}, nil
}
func (f *fakePrompts) GetActiveIntimacy(ctx context.Context, level int) (*model.PromptTemplate, error) {
	return &model.PromptTemplate{Content: "polite"}, nil
}

// scripted vendor adapter

type fakeProvider struct {
	family llm.Family
	events []llm.StreamEvent
}

func (f *fakeProvider) Name() string       { return "fake" }
func (f *fakeProvider) Family() llm.Family { return f.family }
func (f *fakeProvider) Complete(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	return nil, errors.New("not scripted")
}
func (f *fakeProvider) Stream(ctx context.Context, req *llm.Request) (<-chan llm.StreamEvent, error) {
	ch := make(chan llm.StreamEvent)
	go func() {
		defer close(ch)
		for _, e := range f.events {
			ch <- e
		}
	}()
	return ch, nil
}
func (f *fakeProvider) Health(ctx context.Context) error { return nil }

func intPtr(v int) *int { return &v }

func newTestService(repo *fakeRepo, provider llm.Provider) *Service {
	resolver := prompt.NewResolver(repo.prompts, cache.NewNoopCache(), zap.NewNop())
	return NewService(
		repo,
		map[llm.Family]llm.Provider{provider.Family(): provider},
		resolver,
		pricing.NewRegistry(),
		config.ChatConfig{DefaultModel: "gpt-4o-mini", TitleMaxLength: 50, IntimacyLevel: 1},
		zap.NewNop(),
	)
}

func collect(events *[]api.Event) EmitFunc {
	return func(e api.Event) { *events = append(*events, e) }
}

func TestStreamTurn_SuccessPath(t *testing.T) {
	repo := newFakeRepo(&model.Conversation{ID: "c1", ModelID: "gpt-4o-mini"})
	provider := &fakeProvider{family: llm.FamilyOpenAI, events: []llm.StreamEvent{
		{Kind: llm.KindChunk, Text: "힘든 하루"},
		{Kind: llm.KindChunk, Text: "였군요."},
		{Kind: llm.KindDone, Result: &llm.Result{
			Content:      "힘든 하루였군요.",
			Model:        "gpt-4o-mini-2024-07-18",
			InputTokens:  intPtr(120),
			OutputTokens: intPtr(8),
		}},
	}}
	svc := newTestService(repo, provider)

	var events []api.Event
	err := svc.StreamTurn(context.Background(), "c1", api.TurnRequest{Content: "오늘 하루 힘들었어"}, collect(&events))
	require.NoError(t, err)

	// userMessage, two chunks, done — terminal event last
	require.Len(t, events, 4)
	assert.Equal(t, api.EventUserMessage, events[0].Kind)
	assert.Equal(t, api.EventChunk, events[1].Kind)
	assert.Equal(t, api.EventChunk, events[2].Kind)
	assert.Equal(t, api.EventDone, events[3].Kind)

	done := events[3].Payload.(api.DonePayload)
	assert.Equal(t, "gpt-4o-mini-2024-07-18", done.Model)
	require.NotNil(t, done.Cost)
	assert.GreaterOrEqual(t, *done.Cost, 0.0)

	// exactly two new rows: user then assistant
	require.Len(t, repo.messages.rows, 2)
	assert.Equal(t, model.RoleUser, repo.messages.rows[0].Role)
	assert.Equal(t, model.RoleAssistant, repo.messages.rows[1].Role)
	assert.Equal(t, "힘든 하루였군요.", repo.messages.rows[1].Content)
	assert.True(t, repo.messages.rows[1].CostUSD.Valid)

	// first exchange titles the conversation after the user input
	assert.Equal(t, "오늘 하루 힘들었어", repo.conversations.titles["c1"])
}

func TestStreamTurn_TitleTruncation(t *testing.T) {
	repo := newFakeRepo(&model.Conversation{ID: "c1", ModelID: "gpt-4o-mini"})
	provider := &fakeProvider{family: llm.FamilyOpenAI, events: []llm.StreamEvent{
		{Kind: llm.KindDone, Result: &llm.Result{Content: "네", Model: "gpt-4o-mini"}},
	}}
	svc := newTestService(repo, provider)

	long := ""
	for i := 0; i < 60; i++ {
		long += "가"
	}

	var events []api.Event
	err := svc.StreamTurn(context.Background(), "c1", api.TurnRequest{Content: long}, collect(&events))
	require.NoError(t, err)

	title := repo.conversations.titles["c1"]
	assert.Equal(t, 51, len([]rune(title)))
	assert.Equal(t, "…", string([]rune(title)[50]))
}

func TestStreamTurn_ContinueCreatesOnlyAssistantRow(t *testing.T) {
	repo := newFakeRepo(&model.Conversation{ID: "c1", ModelID: "gpt-4o-mini"})
	repo.messages.rows = []model.Message{
		{ID: "m1", ConversationID: "c1", Role: model.RoleUser, Content: "계속해 줘"},
	}
	provider := &fakeProvider{family: llm.FamilyOpenAI, events: []llm.StreamEvent{
		{Kind: llm.KindChunk, Text: "이어서 말할게요."},
		{Kind: llm.KindDone, Result: &llm.Result{Content: "이어서 말할게요.", Model: "gpt-4o-mini"}},
	}}
	svc := newTestService(repo, provider)

	var events []api.Event
	err := svc.StreamTurn(context.Background(), "c1", api.TurnRequest{Continue: true}, collect(&events))
	require.NoError(t, err)

	// no userMessage event, one new assistant row
	assert.Equal(t, api.EventChunk, events[0].Kind)
	require.Len(t, repo.messages.rows, 2)
	assert.Equal(t, model.RoleAssistant, repo.messages.rows[1].Role)

	// continue is not a first exchange; the title stays untouched
	assert.Empty(t, repo.conversations.titles)
}

func TestStreamTurn_VendorFailureMidStream(t *testing.T) {
	repo := newFakeRepo(&model.Conversation{ID: "c1", ModelID: "gpt-4o-mini"})
	provider := &fakeProvider{family: llm.FamilyOpenAI, events: []llm.StreamEvent{
		{Kind: llm.KindChunk, Text: "절반만"},
		{Kind: llm.KindError, Err: errors.New("connection reset")},
	}}
	svc := newTestService(repo, provider)

	var events []api.Event
	err := svc.StreamTurn(context.Background(), "c1", api.TurnRequest{Content: "안녕"}, collect(&events))
	require.NoError(t, err)

	last := events[len(events)-1]
	require.Equal(t, api.EventError, last.Kind)
	p := last.Payload.(api.ErrorPayload)
	assert.Equal(t, apologyContent, p.Content)
	assert.NotEmpty(t, p.AssistantMessageID)

	for _, e := range events {
		assert.NotEqual(t, api.EventDone, e.Kind)
	}

	// apology row persisted, no usage fields
	require.Len(t, repo.messages.rows, 2)
	apology := repo.messages.rows[1]
	assert.Equal(t, model.RoleAssistant, apology.Role)
	assert.Equal(t, apologyContent, apology.Content)
	assert.False(t, apology.InputTokens.Valid)
	assert.False(t, apology.CostUSD.Valid)
	assert.False(t, apology.ModelID.Valid)
}

func TestStreamTurn_ValidationRejectsEmptyTurn(t *testing.T) {
	repo := newFakeRepo(&model.Conversation{ID: "c1", ModelID: "gpt-4o-mini"})
	svc := newTestService(repo, &fakeProvider{family: llm.FamilyOpenAI})

	var events []api.Event
	err := svc.StreamTurn(context.Background(), "c1", api.TurnRequest{}, collect(&events))

	require.Error(t, err)
	assert.Empty(t, events)
	assert.Empty(t, repo.messages.rows)
}

func TestStreamTurn_UnknownConversation(t *testing.T) {
	repo := newFakeRepo(nil)
	svc := newTestService(repo, &fakeProvider{family: llm.FamilyOpenAI})

	var events []api.Event
	err := svc.StreamTurn(context.Background(), "missing", api.TurnRequest{Content: "안녕"}, collect(&events))

	require.Error(t, err)
	assert.Empty(t, events)
}

func TestStreamTurn_UnknownModelFailsInBand(t *testing.T) {
	repo := newFakeRepo(&model.Conversation{ID: "c1", ModelID: "not-a-real-model"})
	svc := newTestService(repo, &fakeProvider{family: llm.FamilyOpenAI})

	var events []api.Event
	err := svc.StreamTurn(context.Background(), "c1", api.TurnRequest{Content: "안녕"}, collect(&events))
	require.NoError(t, err)

	// user turn already persisted, so the failure is in-band
	require.Len(t, events, 2)
	assert.Equal(t, api.EventUserMessage, events[0].Kind)
	assert.Equal(t, api.EventError, events[1].Kind)
	require.Len(t, repo.messages.rows, 2)
	assert.Equal(t, apologyContent, repo.messages.rows[1].Content)
}

func TestStreamTurn_PersistenceFailureStillEmitsDone(t *testing.T) {
	repo := newFakeRepo(&model.Conversation{ID: "c1", ModelID: "gpt-4o-mini"})
	repo.messages.createErr = errors.New("disk full")
	repo.messages.createErrRole = model.RoleAssistant
	provider := &fakeProvider{family: llm.FamilyOpenAI, events: []llm.StreamEvent{
		{Kind: llm.KindChunk, Text: "네"},
		{Kind: llm.KindDone, Result: &llm.Result{Content: "네", Model: "gpt-4o-mini"}},
	}}
	svc := newTestService(repo, provider)

	var events []api.Event
	err := svc.StreamTurn(context.Background(), "c1", api.TurnRequest{Content: "안녕"}, collect(&events))
	require.NoError(t, err)

	// the vendor answered; the user is shown done despite the failed write
	last := events[len(events)-1]
	assert.Equal(t, api.EventDone, last.Kind)
}

func TestStreamTurn_BareStreamCloseIsFailure(t *testing.T) {
	repo := newFakeRepo(&model.Conversation{ID: "c1", ModelID: "gpt-4o-mini"})
	provider := &fakeProvider{family: llm.FamilyOpenAI, events: nil}
	svc := newTestService(repo, provider)

	var events []api.Event
	err := svc.StreamTurn(context.Background(), "c1", api.TurnRequest{Content: "안녕"}, collect(&events))
	require.NoError(t, err)

	last := events[len(events)-1]
	assert.Equal(t, api.EventError, last.Kind)
}
