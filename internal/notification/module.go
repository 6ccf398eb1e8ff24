// Package notification pushes board and import updates to connected clients.
package notification

import (
	"context"

	"leadboard_backend/internal/events"
	apphttp "leadboard_backend/internal/http"
	"leadboard_backend/internal/notification/sse"
	"leadboard_backend/platform/httpkit"
	"leadboard_backend/platform/logger"
)

// Module handles notification-related event subscriptions and the SSE stream.
type Module struct {
	sse   *sse.Service
	relay *ProgressRelay
	log   *logger.Logger
}

// New creates a new notification module. relay may be nil, in which case
// import progress is delivered only from the local bus.
func New(relay *ProgressRelay, log *logger.Logger) *Module {
	return &Module{
		sse:   sse.New(log),
		relay: relay,
		log:   log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes mounts the event stream on the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/events", m.sse.Handler(httpkit.UserIDFromContext))
}

// RegisterHandlers subscribes to lead changes and import progress.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.LeadOwnerChanged{}.EventName(), m)
	bus.Subscribe(events.LeadStageChanged{}.EventName(), m)

	if m.relay != nil {
		m.relay.RegisterHandlers(bus)
	} else {
		bus.Subscribe(events.ImportJobProgressed{}.EventName(), m)
	}

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		// Imports create leads in bulk; their progress events cover them.
		if e.ImportJobID != nil {
			return nil
		}
		m.sse.Broadcast(sse.Event{Type: sse.EventLeadUpdated, LeadID: e.LeadID})
	case events.LeadOwnerChanged:
		m.sse.Broadcast(sse.Event{Type: sse.EventLeadUpdated, LeadID: e.LeadID, Data: e})
	case events.LeadStageChanged:
		m.sse.Broadcast(sse.Event{Type: sse.EventLeadUpdated, LeadID: e.LeadID, Data: e})
	case events.ImportJobProgressed:
		m.deliverProgress(e)
	}
	return nil
}

// Run relays import progress from other processes until ctx is done.
func (m *Module) Run(ctx context.Context) {
	if m.relay == nil {
		return
	}
	m.relay.Run(ctx, m.deliverProgress)
}

// Close disconnects every SSE client.
func (m *Module) Close() {
	m.sse.Close()
}

func (m *Module) deliverProgress(e events.ImportJobProgressed) {
	m.sse.Publish(e.ActorID, sse.Event{Type: sse.EventImportProgress, JobID: e.JobID, Data: e})
}
