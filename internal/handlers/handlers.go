package handlers

import (
	"go.uber.org/zap"

	"github.com/gdlist/list-api/internal/cache"
	"github.com/gdlist/list-api/internal/logic"
)

type Config struct {
	Service logic.ListService
	Cache   cache.Store
	Logger  *zap.Logger
}

type Handler struct {
	service logic.ListService
	cache   cache.Store
	logger  *zap.SugaredLogger
}

func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Handler{
		service: cfg.Service,
		cache:   cfg.Cache,
		logger:  cfg.Logger.Sugar(),
	}
}
