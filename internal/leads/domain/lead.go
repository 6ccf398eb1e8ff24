package domain

import (
	"time"

	"github.com/google/uuid"
)

// Lead is a prospect record. StageLabel is kept as stored; callers resolve it
// through a Catalog.
type Lead struct {
	ID          uuid.UUID
	Name        string
	Phone       string
	Email       *string
	DocumentID  *string
	City        *string
	Occupation  *string
	Notes       *string
	CampaignID  *uuid.UUID
	StageLabel  string
	Assignments []Assignment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Assignment links a lead to an owning agent. Inactive assignments are kept
// as history.
type Assignment struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	OwnerID    uuid.UUID
	ActorID    uuid.UUID
	AssignedAt time.Time
	Active     bool
}

// ActiveAssignment returns the current owner link, if any.
func (l Lead) ActiveAssignment() (Assignment, bool) {
	for _, a := range l.Assignments {
		if a.Active {
			return a, true
		}
	}
	return Assignment{}, false
}

// OwnerID returns the current owner or nil.
func (l Lead) OwnerID() *uuid.UUID {
	a, ok := l.ActiveAssignment()
	if !ok {
		return nil
	}
	id := a.OwnerID
	return &id
}

// State projects the lead onto the transition rules' view.
func (l Lead) State(catalog *Catalog) LeadState {
	_, owned := l.ActiveAssignment()
	return LeadState{Stage: catalog.Resolve(l.StageLabel), HasOwner: owned}
}

// Campaign is the grouping an import targets.
type Campaign struct {
	ID        uuid.UUID
	Name      string
	Active    bool
	CreatedAt time.Time
}

// Activity is one timeline entry of a lead.
type Activity struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	ActorID   uuid.UUID
	Action    string
	Meta      map[string]any
	CreatedAt time.Time
}

// Activity actions.
const (
	ActionOwnerChanged = "owner_changed"
	ActionStageChanged = "stage_changed"
	ActionCreated      = "created"
)
