// Package board keeps a client-side board of leads grouped by stage in sync
// with the lead store. Stage changes are shown optimistically through an
// override store and reconciled against authoritative data on every refresh.
package board

import (
	"context"
	"time"

	"leadboard_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Lead is the board's view of an authoritative lead record.
type Lead struct {
	ID         uuid.UUID
	Name       string
	Phone      string
	CampaignID *uuid.UUID
	StageLabel string
	OwnerID    *uuid.UUID
	UpdatedAt  time.Time
}

// HasOwner reports whether the lead has an active assignment.
func (l Lead) HasOwner() bool {
	return l.OwnerID != nil
}

// Filter narrows an authoritative read.
type Filter struct {
	CampaignID *uuid.UUID
	OwnerID    *uuid.UUID
	Search     string
}

// LeadStore is the remote source of truth. Every call may fail independently;
// errors carry apperr kinds (Conflict, Precondition, Transient, ...). The
// acting user is identified by the store's credentials.
type LeadStore interface {
	FetchLeads(ctx context.Context, filter Filter) ([]Lead, error)
	SetLeadOwner(ctx context.Context, leadID uuid.UUID, ownerID *uuid.UUID) (Lead, error)
	SetLeadStage(ctx context.Context, leadID uuid.UUID, stageID string) (Lead, error)
	FetchStageCatalog(ctx context.Context) ([]domain.Definition, error)
}
