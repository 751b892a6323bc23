package prompt

import (
	"context"
	"fmt"
	"time"

	"github.com/maeum-ai/maeum-api/internal/store"
	"github.com/maeum-ai/maeum-api/internal/store/cache"
	"go.uber.org/zap"
)

const cacheTTL = 5 * time.Minute

// Resolver assembles the system prompt for a turn: the active base prompt
// plus the tone modifier for the given intimacy level, joined with a blank
// line. Resolution never fails; any store or cache trouble falls back to the
// compiled-in defaults for that read only.
type Resolver struct {
	prompts store.PromptRepository
	cache   cache.CacheService
	logger  *zap.Logger
}

func NewResolver(prompts store.PromptRepository, cacheService cache.CacheService, logger *zap.Logger) *Resolver {
	return &Resolver{
		prompts: prompts,
		cache:   cacheService,
		logger:  logger,
	}
}

// Resolve returns the full system prompt for the level. A level with no
// active modifier yields the base prompt alone.
func (r *Resolver) Resolve(ctx context.Context, level int) string {
	base := r.base(ctx)
	modifier := r.intimacy(ctx, level)

	if modifier == "" {
		return base
	}
	return base + "\n\n" + modifier
}

func (r *Resolver) base(ctx context.Context) string {
	const key = "prompt:base"

	var cached string
	if err := r.cache.Get(ctx, key, &cached); err == nil && cached != "" {
		return cached
	}

	tpl, err := r.prompts.GetActiveBase(ctx)
	if err != nil || tpl == nil {
		if err != nil {
			r.logger.Warn("base prompt read failed, using default", zap.Error(err))
		}
		return defaultBase
	}

	if err := r.cache.Set(ctx, key, tpl.Content, cacheTTL); err != nil {
		r.logger.Debug("prompt cache set failed", zap.Error(err))
	}
	return tpl.Content
}

func (r *Resolver) intimacy(ctx context.Context, level int) string {
	key := fmt.Sprintf("prompt:intimacy:%d", level)

	var cached string
	if err := r.cache.Get(ctx, key, &cached); err == nil && cached != "" {
		return cached
	}

	tpl, err := r.prompts.GetActiveIntimacy(ctx, level)
	if err != nil || tpl == nil {
		if err != nil {
			r.logger.Warn("intimacy prompt read failed, using default",
				zap.Int("level", level), zap.Error(err))
		}
		return defaultIntimacy[level]
	}

	if err := r.cache.Set(ctx, key, tpl.Content, cacheTTL); err != nil {
		r.logger.Debug("prompt cache set failed", zap.Error(err))
	}
	return tpl.Content
}
