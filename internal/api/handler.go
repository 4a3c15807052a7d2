package api

import (
	"log/slog"

	"github.com/shaiso/hrflow/internal/engine"
	"github.com/shaiso/hrflow/internal/registry"
	"github.com/shaiso/hrflow/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	registry     *registry.Registry
	engine       *engine.Engine
	auditRepo    *repo.AuditRepo
	scheduleRepo *repo.ScheduleRepo
	logger       *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Registry     *registry.Registry
	Engine       *engine.Engine
	AuditRepo    *repo.AuditRepo
	ScheduleRepo *repo.ScheduleRepo
	Logger       *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		registry:     cfg.Registry,
		engine:       cfg.Engine,
		auditRepo:    cfg.AuditRepo,
		scheduleRepo: cfg.ScheduleRepo,
		logger:       cfg.Logger,
	}
}
