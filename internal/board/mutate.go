package board

import (
	"context"

	"leadboard_backend/internal/leads/domain"
	"leadboard_backend/platform/apperr"

	"github.com/google/uuid"
)

// DropResult reports what a drop did.
type DropResult struct {
	// Moved is false for no-op drops (abandoned gesture or same stage).
	Moved bool
	Stage domain.Stage
}

// ReassignResult reports an ownership change and its bundled auto-advance.
type ReassignResult struct {
	Lead         Lead
	AutoAdvanced bool
	// Warning is set when the ownership change was stored but the
	// auto-advance to Assigned failed. The reassignment is not undone.
	Warning error
}

// Drop handles a card dropped on a column. An empty target is a gesture that
// ended outside any column and is ignored.
func (b *Board) Drop(ctx context.Context, leadID uuid.UUID, target string) (DropResult, error) {
	if target == "" {
		return DropResult{}, nil
	}
	return b.ChangeStage(ctx, leadID, target)
}

// ChangeStage moves a lead to the stage named by target, which may be a
// canonical key or any label the catalog knows.
func (b *Board) ChangeStage(ctx context.Context, leadID uuid.UUID, target string) (DropResult, error) {
	lead, err := b.mustLead(leadID)
	if err != nil {
		return DropResult{}, err
	}

	catalog := b.Catalog()
	stage, ok := catalog.Lookup(target)
	if !ok {
		return DropResult{}, apperr.Validation(domain.ReasonUnknownStage).WithDetails(map[string]string{"stage": target})
	}

	release, err := b.acquire(leadID)
	if err != nil {
		return DropResult{}, err
	}
	defer release()

	previous, _ := b.effectiveLabel(leadID)
	state := b.state(lead)
	if state.Stage == stage {
		return DropResult{Stage: stage}, nil
	}
	if err := domain.CanChangeStage(state, stage).Err(); err != nil {
		return DropResult{}, err
	}

	b.overrides.Propose(leadID, catalog.Label(stage))
	updated, err := b.store.SetLeadStage(ctx, leadID, stage.Key())
	if err != nil {
		b.overrides.Rollback(leadID, previous)
		b.log.Warn("stage change rolled back", "leadId", leadID, "stage", stage.Key(), "error", err)
		return DropResult{}, err
	}

	b.upsert(updated)
	b.overrides.Confirm(leadID)
	return DropResult{Moved: true, Stage: catalog.Resolve(updated.StageLabel)}, nil
}

// Reassign sets or removes the owner of a lead. Assigning an owner to an
// unowned lead in Pending also moves it to Assigned within the same slot.
func (b *Board) Reassign(ctx context.Context, leadID uuid.UUID, ownerID *uuid.UUID) (ReassignResult, error) {
	lead, err := b.mustLead(leadID)
	if err != nil {
		return ReassignResult{}, err
	}

	release, err := b.acquire(leadID)
	if err != nil {
		return ReassignResult{}, err
	}
	defer release()

	state := b.state(lead)
	if err := domain.CanChangeOwner(state).Err(); err != nil {
		return ReassignResult{}, err
	}
	plan := domain.PlanOwnerChange(state, ownerID != nil)

	updated, err := b.store.SetLeadOwner(ctx, leadID, ownerID)
	if err != nil {
		b.log.Warn("owner change failed", "leadId", leadID, "error", err)
		return ReassignResult{}, err
	}
	b.upsert(updated)

	result := ReassignResult{Lead: updated}
	catalog := b.Catalog()
	if !plan.AutoAdvance || catalog.Resolve(updated.StageLabel) != domain.StagePending {
		return result, nil
	}

	previous, _ := b.effectiveLabel(leadID)
	b.overrides.Propose(leadID, catalog.Label(domain.StageAssigned))
	advanced, err := b.store.SetLeadStage(ctx, leadID, domain.StageAssigned.Key())
	if err != nil {
		b.overrides.Rollback(leadID, previous)
		b.log.Warn("auto-advance to assigned failed", "leadId", leadID, "error", err)
		result.Warning = err
		return result, nil
	}

	b.upsert(advanced)
	b.overrides.Confirm(leadID)
	result.Lead = advanced
	result.AutoAdvanced = true
	return result, nil
}
