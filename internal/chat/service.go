package chat

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maeum-ai/maeum-api/internal/config"
	"github.com/maeum-ai/maeum-api/internal/llm"
	"github.com/maeum-ai/maeum-api/internal/pricing"
	"github.com/maeum-ai/maeum-api/internal/prompt"
	"github.com/maeum-ai/maeum-api/internal/store"
	"github.com/maeum-ai/maeum-api/internal/store/model"
	"github.com/maeum-ai/maeum-api/pkg/api"
	"go.uber.org/zap"
)

// apologyContent is the fixed assistant reply persisted when a turn fails
// after the stream has begun. It carries no model or usage fields.
const apologyContent = "미안해요, 지금은 답장을 보낼 수 없어요. 잠시 후에 다시 말 걸어 주세요."

// EmitFunc delivers one wire event to the caller. Delivery failures are the
// transport's problem; the coordinator keeps going either way.
type EmitFunc func(event api.Event)

// Service coordinates one streamed turn end to end: persist the user turn,
// dispatch to the right vendor adapter, relay chunks, and durably record the
// outcome. One invocation is strictly sequential; concurrency only exists
// across invocations.
type Service struct {
	repo      store.Repository
	providers map[llm.Family]llm.Provider
	prompts   *prompt.Resolver
	registry  *pricing.Registry
	cfg       config.ChatConfig
	logger    *zap.Logger
}

func NewService(
	repo store.Repository,
	providers map[llm.Family]llm.Provider,
	prompts *prompt.Resolver,
	registry *pricing.Registry,
	cfg config.ChatConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		providers: providers,
		prompts:   prompts,
		registry:  registry,
		cfg:       cfg,
		logger:    logger,
	}
}

// Registry exposes the model table for the listing endpoint.
func (s *Service) Registry() *pricing.Registry { return s.registry }

// StreamTurn runs one turn against a conversation. Errors returned from this
// method occurred before any event was emitted and map to plain HTTP
// statuses; once the first event is out, every failure is reported in-band as
// a terminal error event and the return value is nil. Exactly one terminal
// event (done or error) is emitted per call that gets past validation.
func (s *Service) StreamTurn(ctx context.Context, conversationID string, req api.TurnRequest, emit EmitFunc) error {
	if req.Content == "" && !req.Continue {
		return api.BadRequestError("content is required unless continue is set")
	}

	conv, err := s.repo.Conversations().Get(ctx, conversationID)
	if err != nil {
		return api.NotFoundError(fmt.Sprintf("conversation %s not found", conversationID))
	}

	log := s.logger.With(zap.String("conversation_id", conv.ID))

	// Persist the user turn and acknowledge it before any vendor latency.
	userCreated := false
	if req.Content != "" {
		userMsg := &model.Message{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			Role:           model.RoleUser,
			Content:        req.Content,
			CreatedAt:      time.Now().UTC(),
		}
		if err := s.repo.Messages().Create(ctx, userMsg); err != nil {
			return api.InternalError("could not persist user message", err)
		}
		userCreated = true

		emit(api.Event{Kind: api.EventUserMessage, Payload: api.UserMessagePayload{
			ID:        userMsg.ID,
			Content:   userMsg.Content,
			CreatedAt: userMsg.CreatedAt,
		}})
	}

	// Past this point the stream is live: failures are reported in-band so a
	// persisted user turn is never left without a matching assistant turn.
	history, err := s.repo.Messages().ListByConversation(ctx, conv.ID)
	if err != nil {
		s.failTurn(ctx, conv.ID, log, emit, fmt.Errorf("load history: %w", err))
		return nil
	}

	turns := make([]llm.Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, llm.Turn{Role: m.Role, Content: m.Content})
	}
	turns = Normalize(turns)

	modelID := conv.ModelID
	if modelID == "" {
		modelID = s.cfg.DefaultModel
	}
	desc, ok := s.registry.Lookup(modelID)
	if !ok {
		s.failTurn(ctx, conv.ID, log, emit, fmt.Errorf("unknown model %q", modelID))
		return nil
	}
	provider, ok := s.providers[desc.Family]
	if !ok {
		s.failTurn(ctx, conv.ID, log, emit, fmt.Errorf("no provider configured for family %q", desc.Family))
		return nil
	}

	system := s.prompts.Resolve(ctx, s.cfg.IntimacyLevel)

	events, err := provider.Stream(ctx, &llm.Request{
		System: system,
		Turns:  turns,
		Model:  desc.UpstreamID,
	})
	if err != nil {
		s.failTurn(ctx, conv.ID, log, emit, fmt.Errorf("start stream: %w", err))
		return nil
	}

	// Relay chunks while accumulating; the accumulator is owned by this
	// invocation, never shared.
	var accumulated string
	for event := range events {
		switch event.Kind {
		case llm.KindChunk:
			accumulated += event.Text
			emit(api.Event{Kind: api.EventChunk, Payload: api.ChunkPayload{Content: event.Text}})
		case llm.KindDone:
			s.finalize(ctx, conv, desc, event.Result, accumulated, userCreated, len(history), req.Content, log, emit)
			return nil
		case llm.KindError:
			s.failTurn(ctx, conv.ID, log, emit, event.Err)
			return nil
		}
	}

	// The adapter contract promises a terminal event before close; a bare
	// close is treated as a vendor failure.
	s.failTurn(ctx, conv.ID, log, emit, fmt.Errorf("vendor stream closed without terminal event"))
	return nil
}

// finalize persists the assistant turn and emits the terminal done event. A
// store failure here is logged and done is emitted anyway: the vendor did
// answer, and the user must not be shown a failure for it.
func (s *Service) finalize(
	ctx context.Context,
	conv *model.Conversation,
	desc pricing.Descriptor,
	result *llm.Result,
	accumulated string,
	userCreated bool,
	historyLen int,
	userContent string,
	log *zap.Logger,
	emit EmitFunc,
) {
	cost := s.registry.Cost(desc.ID, result.InputTokens, result.OutputTokens)

	msg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Role:           model.RoleAssistant,
		Content:        accumulated,
		ModelID:        sql.NullString{String: result.Model, Valid: result.Model != ""},
		CreatedAt:      time.Now().UTC(),
	}
	if result.InputTokens != nil {
		msg.InputTokens = sql.NullInt64{Int64: int64(*result.InputTokens), Valid: true}
	}
	if result.OutputTokens != nil {
		msg.OutputTokens = sql.NullInt64{Int64: int64(*result.OutputTokens), Valid: true}
	}
	if cost != nil {
		msg.CostUSD = sql.NullFloat64{Float64: *cost, Valid: true}
	}

	// Writes survive a caller disconnect.
	persistCtx := context.WithoutCancel(ctx)
	if err := s.repo.Messages().Create(persistCtx, msg); err != nil {
		log.Error("assistant turn persistence failed, emitting done anyway", zap.Error(err))
	}

	// First exchange titles the conversation after the opening user input.
	if userCreated && historyLen == 1 {
		if err := s.repo.Conversations().UpdateTitle(persistCtx, conv.ID, s.title(userContent)); err != nil {
			log.Warn("conversation title update failed", zap.Error(err))
		}
	}

	emit(api.Event{Kind: api.EventDone, Payload: api.DonePayload{
		AssistantMessageID: msg.ID,
		CreatedAt:          msg.CreatedAt,
		Model:              result.Model,
		InputTokens:        result.InputTokens,
		OutputTokens:       result.OutputTokens,
		Cost:               cost,
	}})
}

// failTurn runs the failure path: persist the fixed apology as the assistant
// turn, then emit the terminal error event. Persistence uses a
// disconnect-proof context so the conversation never ends on an orphaned user
// turn.
func (s *Service) failTurn(ctx context.Context, conversationID string, log *zap.Logger, emit EmitFunc, cause error) {
	log.Warn("turn failed, persisting apology", zap.Error(cause))

	msg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           model.RoleAssistant,
		Content:        apologyContent,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.Messages().Create(context.WithoutCancel(ctx), msg); err != nil {
		log.Error("apology persistence failed", zap.Error(err))
	}

	emit(api.Event{Kind: api.EventError, Payload: api.ErrorPayload{
		AssistantMessageID: msg.ID,
		Content:            apologyContent,
	}})
}

// title truncates the opening user input to the configured rune length,
// marking truncation with an ellipsis.
func (s *Service) title(content string) string {
	max := s.cfg.TitleMaxLength
	if max <= 0 {
		max = 50
	}
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "…"
}
