// Package service implements the lead store operations: authoritative reads,
// guarded ownership and stage changes, the stage catalog and campaigns.
package service

import (
	"context"
	"errors"
	"strings"

	"leadboard_backend/internal/events"
	"leadboard_backend/internal/leads/domain"
	"leadboard_backend/internal/leads/repository"
	"leadboard_backend/internal/leads/transport"
	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/logger"
	"leadboard_backend/platform/phone"
	"leadboard_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200

	msgLeadNotFound     = "lead not found"
	msgCampaignNotFound = "campaign not found"
	msgInvalidPhone     = "phone is not a valid phone number"
)

// errUnchanged aborts a mutation transaction that would not change anything.
var errUnchanged = errors.New("unchanged")

// Repository defines the data access interface needed by the service.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.StageKeyIndexer
	repository.LeadMutator
	repository.CatalogReader
	repository.ActivityLogger
}

// Service handles lead store operations.
type Service struct {
	repo        Repository
	eventBus    events.Bus
	catalog     *domain.Catalog
	phoneRegion string
	log         *logger.Logger
}

// New creates a new lead service. catalog must already include remote
// definitions and configured aliases; see LoadCatalog.
func New(repo Repository, eventBus events.Bus, catalog *domain.Catalog, phoneRegion string, log *logger.Logger) *Service {
	if catalog == nil {
		catalog = domain.DefaultCatalog()
	}
	return &Service{
		repo:        repo,
		eventBus:    eventBus,
		catalog:     catalog,
		phoneRegion: phoneRegion,
		log:         log,
	}
}

// LoadCatalog builds the catalog from the stages table and an optional alias
// file. A database failure falls back to the built-in catalog; a broken alias
// file is reported because it is operator configuration.
func LoadCatalog(ctx context.Context, repo repository.CatalogReader, aliasFile string, log *logger.Logger) (*domain.Catalog, error) {
	catalog := domain.DefaultCatalog()
	defs, err := repo.ListStages(ctx)
	if err != nil {
		log.Warn("stage catalog unavailable, using built-in catalog", "error", err)
	} else if len(defs) > 0 {
		catalog = domain.NewCatalog(defs)
	}

	if strings.TrimSpace(aliasFile) == "" {
		return catalog, nil
	}
	extra, err := domain.LoadAliasFile(aliasFile)
	if err != nil {
		return nil, err
	}
	return catalog.WithAliases(extra)
}

// Catalog returns the catalog used to resolve stage labels.
func (s *Service) Catalog() *domain.Catalog {
	return s.catalog
}

// SyncStageKeys recomputes the stored stage key of every label group through
// the catalog so the stage filter matches what responses report. With
// unsetOnly only rows written without a key are touched. It returns the number
// of rows rewritten.
func (s *Service) SyncStageKeys(ctx context.Context, unsetOnly bool) (int, error) {
	groups, err := s.repo.StageKeyGroups(ctx, unsetOnly)
	if err != nil {
		return 0, err
	}
	var updated int64
	for _, g := range groups {
		key := s.catalog.Resolve(g.Label).Key()
		if g.Key != nil && *g.Key == key {
			continue
		}
		n, err := s.repo.SetStageKey(ctx, g, key)
		if err != nil {
			return int(updated), err
		}
		updated += n
	}
	if updated > 0 {
		s.log.Info("stage keys synced", "rows", updated)
	}
	return int(updated), nil
}

// List returns one page of leads.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	params := repository.ListParams{
		Unassigned: req.Unassigned,
		Search:     req.Search,
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
	}
	if req.CampaignID != "" {
		id, err := uuid.Parse(req.CampaignID)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("campaignId is not a valid id")
		}
		params.CampaignID = &id
	}
	if req.OwnerID != "" {
		id, err := uuid.Parse(req.OwnerID)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("ownerId is not a valid id")
		}
		params.OwnerID = &id
	}
	if req.Stage != "" {
		stage, err := s.lookupStage(req.Stage)
		if err != nil {
			return transport.LeadListResponse{}, err
		}
		key := stage.Key()
		params.StageKey = &key
		if _, err := s.SyncStageKeys(ctx, true); err != nil {
			s.log.Warn("stage key backfill failed", "error", err)
		}
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, s.toLeadResponse(lead))
	}

	totalPages := (total + pageSize - 1) / pageSize
	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetByID retrieves a lead by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err)
	}
	return s.toLeadResponse(lead), nil
}

// Create creates a lead in the Pending stage without an owner.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	normalized, ok := phone.NormalizeE164(req.Phone, s.phoneRegion)
	if !ok {
		return transport.LeadResponse{}, apperr.Validation(msgInvalidPhone)
	}
	if req.CampaignID != nil {
		if _, err := s.repo.GetCampaign(ctx, *req.CampaignID); err != nil {
			if errors.Is(err, repository.ErrCampaignNotFound) {
				return transport.LeadResponse{}, apperr.Validation(msgCampaignNotFound)
			}
			return transport.LeadResponse{}, err
		}
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		Name:       sanitize.Line(req.Name),
		Phone:      normalized,
		Email:      optional(strings.ToLower(strings.TrimSpace(req.Email))),
		DocumentID: optional(sanitize.Line(req.DocumentID)),
		City:       optional(sanitize.Line(req.City)),
		Occupation: optional(sanitize.Line(req.Occupation)),
		Notes:      optional(sanitize.Text(req.Notes)),
		CampaignID: req.CampaignID,
		StageLabel: s.catalog.Label(domain.StagePending),
		StageKey:   domain.StagePending.Key(),
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		CampaignID: lead.CampaignID,
		ActorID:    actorID,
	})
	return s.toLeadResponse(lead), nil
}

// SetOwner assigns, replaces or removes the owner of a lead. Won and lost
// leads are rejected with a conflict: the caller did not know the lead had
// been closed. Stage is never touched here; the auto-advance to Assigned is
// issued by the caller as a separate SetStage.
func (s *Service) SetOwner(ctx context.Context, leadID uuid.UUID, ownerID *uuid.UUID, actorID uuid.UUID) (transport.LeadResponse, error) {
	result, err := s.repo.ChangeOwner(ctx, leadID, ownerID, actorID, func(lead domain.Lead) error {
		if d := domain.CanChangeOwner(lead.State(s.catalog)); !d.Allowed {
			return apperr.Conflict(d.Reason)
		}
		return nil
	})
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err)
	}

	if result.Changed {
		s.log.WithContext(ctx).Info("lead owner changed", "leadId", leadID, "ownerId", ownerID, "actorId", actorID)
		s.eventBus.Publish(ctx, events.LeadOwnerChanged{
			BaseEvent:       events.NewBaseEvent(),
			LeadID:          leadID,
			PreviousOwnerID: result.PreviousOwner,
			NewOwnerID:      ownerID,
			ActorID:         actorID,
		})
	}
	return s.toLeadResponse(result.Lead), nil
}

// SetStage moves an owned lead to stageID (a canonical key or any catalog
// label). The stored label is the catalog's display label.
func (s *Service) SetStage(ctx context.Context, leadID uuid.UUID, stageID string, actorID uuid.UUID) (transport.LeadResponse, error) {
	target, err := s.lookupStage(stageID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	label := s.catalog.Label(target)

	result, err := s.repo.ChangeStage(ctx, leadID, label, target.Key(), func(lead domain.Lead) error {
		state := lead.State(s.catalog)
		if d := domain.CanChangeStage(state, target); !d.Allowed {
			return d.Err()
		}
		if state.Stage == target {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return s.GetByID(ctx, leadID)
	}
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err)
	}

	if result.Changed {
		from := s.catalog.Resolve(result.PreviousLabel)
		s.log.WithContext(ctx).Info("lead stage changed", "leadId", leadID, "from", from.Key(), "to", target.Key(), "actorId", actorID)
		s.eventBus.Publish(ctx, events.LeadStageChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			FromLabel: result.PreviousLabel,
			FromKey:   from.Key(),
			ToLabel:   label,
			ToKey:     target.Key(),
			ActorID:   actorID,
		})
	}
	return s.toLeadResponse(result.Lead), nil
}

// Stages returns the stage catalog in board order.
func (s *Service) Stages() []transport.StageResponse {
	defs := s.catalog.Definitions()
	out := make([]transport.StageResponse, 0, len(defs))
	for _, def := range defs {
		out = append(out, transport.StageResponse{
			ID:       def.Key,
			Label:    def.Label,
			Aliases:  def.Aliases,
			Terminal: def.Terminal,
			Position: def.Position,
		})
	}
	return out
}

// Campaigns lists import destinations.
func (s *Service) Campaigns(ctx context.Context, activeOnly bool) ([]transport.CampaignResponse, error) {
	campaigns, err := s.repo.ListCampaigns(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]transport.CampaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, transport.CampaignResponse{ID: c.ID, Name: c.Name, Active: c.Active})
	}
	return out, nil
}

// Activity returns the timeline of a lead, newest first.
func (s *Service) Activity(ctx context.Context, leadID uuid.UUID) ([]transport.ActivityResponse, error) {
	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		return nil, mapRepoError(err)
	}
	items, err := s.repo.ListActivity(ctx, leadID, 100)
	if err != nil {
		return nil, err
	}
	out := make([]transport.ActivityResponse, 0, len(items))
	for _, item := range items {
		out = append(out, transport.ActivityResponse{
			ID:        item.ID,
			ActorID:   item.ActorID,
			Action:    item.Action,
			Meta:      item.Meta,
			CreatedAt: item.CreatedAt,
		})
	}
	return out, nil
}

func (s *Service) lookupStage(value string) (domain.Stage, error) {
	if stage, ok := domain.StageFromKey(strings.TrimSpace(value)); ok {
		return stage, nil
	}
	if stage, ok := s.catalog.Lookup(value); ok {
		return stage, nil
	}
	return 0, apperr.Validation(domain.ReasonUnknownStage).WithDetails(map[string]string{"stageId": value})
}

func (s *Service) toLeadResponse(lead domain.Lead) transport.LeadResponse {
	assignments := make([]transport.AssignmentResponse, 0, len(lead.Assignments))
	for _, a := range lead.Assignments {
		assignments = append(assignments, transport.AssignmentResponse{
			ID:         a.ID,
			OwnerID:    a.OwnerID,
			ActorID:    a.ActorID,
			AssignedAt: a.AssignedAt,
			Active:     a.Active,
		})
	}
	return transport.LeadResponse{
		ID:          lead.ID,
		Name:        lead.Name,
		Phone:       lead.Phone,
		Email:       lead.Email,
		DocumentID:  lead.DocumentID,
		City:        lead.City,
		Occupation:  lead.Occupation,
		Notes:       lead.Notes,
		CampaignID:  lead.CampaignID,
		StageLabel:  lead.StageLabel,
		StageID:     s.catalog.Resolve(lead.StageLabel).Key(),
		OwnerID:     lead.OwnerID(),
		Assignments: assignments,
		CreatedAt:   lead.CreatedAt,
		UpdatedAt:   lead.UpdatedAt,
	}
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(msgLeadNotFound)
	case errors.Is(err, repository.ErrCampaignNotFound):
		return apperr.NotFound(msgCampaignNotFound)
	default:
		return err
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
