package repository

import (
	"context"

	"leadboard_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	List(ctx context.Context, params ListParams) ([]domain.Lead, int, error)
}

// LeadWriter creates leads.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (domain.Lead, error)
	PhoneExistsInCampaign(ctx context.Context, campaignID uuid.UUID, phone string) (bool, error)
}

// StageKeyIndexer keeps the stored stage key in line with the catalog.
type StageKeyIndexer interface {
	StageKeyGroups(ctx context.Context, unsetOnly bool) ([]StageKeyGroup, error)
	SetStageKey(ctx context.Context, group StageKeyGroup, key string) (int64, error)
}

// LeadMutator applies guarded ownership and stage changes.
type LeadMutator interface {
	ChangeOwner(ctx context.Context, leadID uuid.UUID, ownerID *uuid.UUID, actorID uuid.UUID, guard Guard) (OwnerChange, error)
	ChangeStage(ctx context.Context, leadID uuid.UUID, label, key string, guard Guard) (StageChange, error)
}

// CatalogReader provides the stage catalog and campaigns.
type CatalogReader interface {
	ListStages(ctx context.Context) ([]domain.Definition, error)
	ListCampaigns(ctx context.Context, activeOnly bool) ([]domain.Campaign, error)
	GetCampaign(ctx context.Context, id uuid.UUID) (domain.Campaign, error)
}

// ActivityLogger records activity/audit trail on leads.
type ActivityLogger interface {
	AddActivity(ctx context.Context, leadID uuid.UUID, actorID uuid.UUID, action string, meta map[string]any) error
	ListActivity(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.Activity, error)
}

// LeadsRepository is the full repository used by the leads service.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	StageKeyIndexer
	LeadMutator
	CatalogReader
	ActivityLogger
}

var _ LeadsRepository = (*Repository)(nil)
