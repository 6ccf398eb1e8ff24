package service

import (
	"context"

	"leadboard_backend/internal/events"
	"leadboard_backend/internal/leads/domain"
	"leadboard_backend/internal/leads/repository"
)

// SubscribeActivity writes a timeline entry for every committed lead change.
func SubscribeActivity(bus events.Bus, repo repository.ActivityLogger) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadCreated)
		if !ok {
			return nil
		}
		meta := map[string]any{}
		if e.ImportJobID != nil {
			meta["importJobId"] = e.ImportJobID.String()
		}
		return repo.AddActivity(ctx, e.LeadID, e.ActorID, domain.ActionCreated, meta)
	}))

	bus.Subscribe(events.LeadOwnerChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadOwnerChanged)
		if !ok {
			return nil
		}
		meta := map[string]any{"previousOwnerId": nil, "newOwnerId": nil}
		if e.PreviousOwnerID != nil {
			meta["previousOwnerId"] = e.PreviousOwnerID.String()
		}
		if e.NewOwnerID != nil {
			meta["newOwnerId"] = e.NewOwnerID.String()
		}
		return repo.AddActivity(ctx, e.LeadID, e.ActorID, domain.ActionOwnerChanged, meta)
	}))

	bus.Subscribe(events.LeadStageChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadStageChanged)
		if !ok {
			return nil
		}
		return repo.AddActivity(ctx, e.LeadID, e.ActorID, domain.ActionStageChanged, map[string]any{
			"from":      e.FromLabel,
			"fromStage": e.FromKey,
			"to":        e.ToLabel,
			"toStage":   e.ToKey,
		})
	}))
}
