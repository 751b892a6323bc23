package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maeum-ai/maeum-api/internal/chat"
	"github.com/maeum-ai/maeum-api/internal/config"
	"github.com/maeum-ai/maeum-api/internal/server/middleware"
	"github.com/maeum-ai/maeum-api/internal/server/validator"
	"github.com/maeum-ai/maeum-api/internal/store"
	"go.uber.org/zap"
)

const serviceName = "maeum-api"

type Server struct {
	router    *gin.Engine
	config    *config.Config
	logger    *zap.Logger
	chat      *chat.Service
	repo      store.Repository
	validator *validator.Validator
	version   string
}

func New(cfg *config.Config, logger *zap.Logger, chatService *chat.Service, repo store.Repository, version string) *Server {

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(middleware.Recovery(logger))
	engine.Use(middleware.Logger(logger))
	engine.Use(middleware.Tracing(serviceName))

	s := &Server{
		router:    engine,
		config:    cfg,
		logger:    logger,
		chat:      chatService,
		repo:      repo,
		validator: validator.New(),
		version:   version,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
