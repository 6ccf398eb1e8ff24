// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadboard_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a lead is created manually or by an import.
type LeadCreated struct {
	BaseEvent
	LeadID      uuid.UUID  `json:"leadId"`
	CampaignID  *uuid.UUID `json:"campaignId,omitempty"`
	ActorID     uuid.UUID  `json:"actorId"`
	ImportJobID *uuid.UUID `json:"importJobId,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadOwnerChanged is published after an assignment change has been committed.
// A nil NewOwnerID means the owner was removed.
type LeadOwnerChanged struct {
	BaseEvent
	LeadID          uuid.UUID  `json:"leadId"`
	PreviousOwnerID *uuid.UUID `json:"previousOwnerId,omitempty"`
	NewOwnerID      *uuid.UUID `json:"newOwnerId,omitempty"`
	ActorID         uuid.UUID  `json:"actorId"`
}

func (e LeadOwnerChanged) EventName() string { return "leads.lead.owner_changed" }

// LeadStageChanged is published after a stage change has been committed.
type LeadStageChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	FromLabel string    `json:"fromLabel"`
	FromKey   string    `json:"fromKey"`
	ToLabel   string    `json:"toLabel"`
	ToKey     string    `json:"toKey"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e LeadStageChanged) EventName() string { return "leads.lead.stage_changed" }

// =============================================================================
// Import Domain Events
// =============================================================================

// ImportJobProgressed is published every time an executing job flushes its
// counters, including the final terminal flush.
type ImportJobProgressed struct {
	BaseEvent
	JobID     uuid.UUID `json:"jobId"`
	ActorID   uuid.UUID `json:"actorId"`
	Status    string    `json:"status"`
	TotalRows int       `json:"totalRows"`
	Processed int       `json:"processed"`
	Created   int       `json:"created"`
	Failed    int       `json:"failed"`
}

func (e ImportJobProgressed) EventName() string { return "imports.job.progressed" }
