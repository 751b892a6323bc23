package server

import (
	"github.com/maeum-ai/maeum-api/internal/server/middleware"
	v1 "github.com/maeum-ai/maeum-api/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Identity())
	s.router.Use(middleware.ErrorHandler(s.logger))

	healthHandler := v1.NewHealthHandler(s.version)
	s.router.GET("/health", healthHandler.Health)

	limiter := middleware.NewRateLimiter(
		s.config.RateLimit.RequestsPerSecond,
		s.config.RateLimit.Burst,
		s.logger,
	)

	api := s.router.Group("/v1")
	api.Use(limiter.Middleware())
	{
		chatHandler := v1.NewChatHandler(s.chat, s.validator)
		api.POST("/conversations/:id/stream", chatHandler.StreamTurn)

		convHandler := v1.NewConversationHandler(s.repo, s.validator, s.config.Chat.DefaultModel)
		api.POST("/conversations", convHandler.Create)
		api.GET("/conversations", convHandler.List)
		api.GET("/conversations/:id", convHandler.Get)
		api.DELETE("/conversations/:id", convHandler.Delete)
		api.GET("/conversations/:id/messages", convHandler.ListMessages)
		api.PATCH("/messages/:id", convHandler.EditMessage)
		api.DELETE("/messages/:id", convHandler.DeleteMessage)

		modelHandler := v1.NewModelHandler(s.chat.Registry())
		api.GET("/models", modelHandler.ListModels)
	}
}
