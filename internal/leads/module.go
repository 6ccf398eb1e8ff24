// Package leads provides the lead store bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"context"

	"leadboard_backend/internal/events"
	apphttp "leadboard_backend/internal/http"
	"leadboard_backend/internal/leads/handler"
	"leadboard_backend/internal/leads/repository"
	"leadboard_backend/internal/leads/service"
	"leadboard_backend/platform/config"
	"leadboard_backend/platform/logger"
	"leadboard_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config combines the config interfaces the leads module needs.
type Config interface {
	config.ImportConfig
	config.CatalogConfig
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(ctx context.Context, pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg Config, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool)

	catalog, err := service.LoadCatalog(ctx, repo, cfg.GetStageAliasesFile(), log)
	if err != nil {
		return nil, err
	}

	service.SubscribeActivity(eventBus, repo)

	svc := service.New(repo, eventBus, catalog, cfg.GetImportPhoneRegion(), log)
	if _, err := svc.SyncStageKeys(ctx, false); err != nil {
		log.Warn("stage key sync failed", "error", err)
	}
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service exposes the lead service to other modules (imports).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
