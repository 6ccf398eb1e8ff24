package domain

import "leadboard_backend/platform/apperr"

const (
	// ReasonNoOwner blocks manual stage changes on unowned leads.
	ReasonNoOwner = "assign an owner first"
	// ReasonTerminal blocks ownership changes on won or lost leads.
	ReasonTerminal = "lead is closed; its owner can no longer change"
	// ReasonUnknownStage blocks moves to something that is not a stage.
	ReasonUnknownStage = "unknown stage"
)

// LeadState is what the transition rules need to know about a lead.
type LeadState struct {
	Stage    Stage
	HasOwner bool
}

// Decision is the outcome of a rule check.
type Decision struct {
	Allowed bool
	Reason  string
}

var allowed = Decision{Allowed: true}

func blocked(reason string) Decision {
	return Decision{Reason: reason}
}

// Err returns nil for an allowed decision and a precondition error otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperr.Precondition(d.Reason)
}

// CanChangeOwner checks whether the owner of a lead may be set, replaced or
// removed.
func CanChangeOwner(state LeadState) Decision {
	if state.Stage.IsTerminal() {
		return blocked(ReasonTerminal)
	}
	return allowed
}

// CanChangeStage checks a manual stage change. Leads without an active
// assignment are blocked for every target; the only way they move is the
// auto-advance bundled with an ownership change.
func CanChangeStage(state LeadState, target Stage) Decision {
	if !target.Valid() {
		return blocked(ReasonUnknownStage)
	}
	if !state.HasOwner {
		return blocked(ReasonNoOwner)
	}
	return allowed
}

// OwnerChangePlan describes the composite operation behind an ownership change.
type OwnerChangePlan struct {
	// AutoAdvance is set when the lead must move to StageAssigned once the
	// owner has been stored.
	AutoAdvance bool
}

// PlanOwnerChange decides the follow-up of setting an owner. Only a lead that
// had no owner and sat in Pending auto-advances; reassigning an owned lead
// leaves its stage alone, and removing an owner never advances.
func PlanOwnerChange(state LeadState, assigning bool) OwnerChangePlan {
	return OwnerChangePlan{
		AutoAdvance: assigning && !state.HasOwner && state.Stage == StagePending,
	}
}
