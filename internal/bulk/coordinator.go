// Package bulk applies one action to a selection of leads, one independent
// request per lead, and reports the outcome per lead.
package bulk

import (
	"context"

	"leadboard_backend/internal/board"
	"leadboard_backend/internal/leads/domain"
	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the number of in-flight requests.
const DefaultConcurrency = 4

// Action is a bulk operation.
type Action string

const (
	ActionReassign    Action = "reassign"
	ActionChangeStage Action = "changeStage"
)

// Status is the per-lead outcome.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusBlocked   Status = "blocked"
)

// Params carries the action arguments. OwnerID is used by reassign (nil
// removes the owner); Stage by changeStage.
type Params struct {
	OwnerID *uuid.UUID
	Stage   string
}

// ItemResult is the outcome for one lead.
type ItemResult struct {
	LeadID  uuid.UUID
	Status  Status
	Err     error
	Warning error
}

// Result aggregates the per-lead outcomes in input order.
type Result struct {
	Items []ItemResult
	// Blocked lists leads excluded before dispatch.
	Blocked []uuid.UUID
}

// Count returns how many items ended with status.
func (r Result) Count(status Status) int {
	n := 0
	for _, item := range r.Items {
		if item.Status == status {
			n++
		}
	}
	return n
}

// Mutator is the part of the board a coordinator drives.
type Mutator interface {
	Lead(id uuid.UUID) (board.Lead, bool)
	EffectiveStage(id uuid.UUID) (domain.Stage, bool)
	Catalog() *domain.Catalog
	ChangeStage(ctx context.Context, leadID uuid.UUID, target string) (board.DropResult, error)
	Reassign(ctx context.Context, leadID uuid.UUID, ownerID *uuid.UUID) (board.ReassignResult, error)
}

// Coordinator fans bulk actions out over a Mutator.
type Coordinator struct {
	board       Mutator
	concurrency int
	log         *logger.Logger
}

// New creates a coordinator. A non-positive concurrency uses the default.
func New(m Mutator, concurrency int, log *logger.Logger) *Coordinator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Coordinator{board: m, concurrency: concurrency, log: log}
}

// Apply runs action over leadIDs. Only invalid input fails the whole call;
// every per-lead failure is reported in the result.
func (c *Coordinator) Apply(ctx context.Context, leadIDs []uuid.UUID, action Action, params Params) (Result, error) {
	var (
		run    func(context.Context, uuid.UUID) ItemResult
		target domain.Stage
	)
	switch action {
	case ActionReassign:
		run = func(ctx context.Context, id uuid.UUID) ItemResult {
			return c.reassign(ctx, id, params.OwnerID)
		}
	case ActionChangeStage:
		stage, ok := c.board.Catalog().Lookup(params.Stage)
		if !ok {
			return Result{}, apperr.Validation(domain.ReasonUnknownStage).WithDetails(map[string]string{"stage": params.Stage})
		}
		target = stage
		run = func(ctx context.Context, id uuid.UUID) ItemResult {
			return c.changeStage(ctx, id, params.Stage)
		}
	default:
		return Result{}, apperr.Validation("unknown bulk action").WithDetails(map[string]string{"action": string(action)})
	}

	ids := dedupe(leadIDs)
	result := Result{Items: make([]ItemResult, len(ids))}

	dispatch := make([]int, 0, len(ids))
	for i, id := range ids {
		if item, skip := c.precheck(action, id, target); skip {
			result.Items[i] = item
			if item.Status == StatusBlocked {
				result.Blocked = append(result.Blocked, id)
			}
			continue
		}
		dispatch = append(dispatch, i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, i := range dispatch {
		id := ids[i]
		g.Go(func() error {
			result.Items[i] = run(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	c.log.Info("bulk action applied",
		"action", string(action),
		"total", len(ids),
		"succeeded", result.Count(StatusSucceeded),
		"failed", result.Count(StatusFailed),
		"blocked", result.Count(StatusBlocked),
	)
	return result, nil
}

// precheck partitions the selection before any request is made.
func (c *Coordinator) precheck(action Action, id uuid.UUID, target domain.Stage) (ItemResult, bool) {
	lead, ok := c.board.Lead(id)
	if !ok {
		return ItemResult{LeadID: id, Status: StatusFailed, Err: apperr.NotFound("lead is not on the board")}, true
	}
	stage, _ := c.board.EffectiveStage(id)
	state := domain.LeadState{Stage: stage, HasOwner: lead.HasOwner()}

	var decision domain.Decision
	switch action {
	case ActionChangeStage:
		decision = domain.CanChangeStage(state, target)
	default:
		decision = domain.CanChangeOwner(state)
	}
	if !decision.Allowed {
		return ItemResult{LeadID: id, Status: StatusBlocked, Err: decision.Err()}, true
	}
	return ItemResult{}, false
}

func (c *Coordinator) reassign(ctx context.Context, id uuid.UUID, ownerID *uuid.UUID) ItemResult {
	res, err := c.board.Reassign(ctx, id, ownerID)
	if err != nil {
		return failure(id, err)
	}
	item := ItemResult{LeadID: id, Status: StatusSucceeded, Warning: res.Warning}
	if res.Warning != nil {
		c.log.Warn("bulk reassign auto-advance failed", "leadId", id, "error", res.Warning)
	}
	return item
}

func (c *Coordinator) changeStage(ctx context.Context, id uuid.UUID, stage string) ItemResult {
	if _, err := c.board.ChangeStage(ctx, id, stage); err != nil {
		return failure(id, err)
	}
	return ItemResult{LeadID: id, Status: StatusSucceeded}
}

func failure(id uuid.UUID, err error) ItemResult {
	status := StatusFailed
	if apperr.Is(err, apperr.KindPrecondition) {
		status = StatusBlocked
	}
	return ItemResult{LeadID: id, Status: status, Err: err}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
