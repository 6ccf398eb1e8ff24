// Package imports provides the bulk lead import bounded context module.
package imports

import (
	"leadboard_backend/internal/events"
	apphttp "leadboard_backend/internal/http"
	"leadboard_backend/internal/imports/handler"
	"leadboard_backend/internal/imports/repository"
	"leadboard_backend/internal/imports/service"
	"leadboard_backend/platform/config"
	"leadboard_backend/platform/logger"
	"leadboard_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Config combines the config interfaces the imports module needs.
type Config interface {
	config.ImportConfig
	GetMinioBucketLeadImports() string
	GetMinIOMaxFileSize() int64
}

// Module is the imports bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the import pipeline. enqueuer may be nil in the worker,
// which only executes jobs.
func NewModule(pool *pgxpool.Pool, rdb *redis.Client, files service.FileStore, leads service.LeadSink, enqueuer service.Enqueuer, eventBus events.Bus, val *validator.Validator, cfg Config, log *logger.Logger) *Module {
	svc := service.New(
		repository.NewJobRepository(pool),
		repository.NewPreviewStore(rdb, cfg.GetImportPreviewTTL()),
		files,
		leads,
		enqueuer,
		eventBus,
		val,
		service.Settings{
			Bucket:      cfg.GetMinioBucketLeadImports(),
			MaxFileSize: cfg.GetMinIOMaxFileSize(),
			SampleRows:  cfg.GetImportSampleRows(),
			MaxRows:     cfg.GetImportMaxRows(),
			PhoneRegion: cfg.GetImportPhoneRegion(),
		},
		log,
	)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "imports"
}

// Service exposes the import service to the worker and cleanup loop.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts import routes on the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

var _ apphttp.Module = (*Module)(nil)
