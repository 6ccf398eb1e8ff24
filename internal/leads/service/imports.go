package service

import (
	"context"
	"errors"

	"leadboard_backend/internal/events"
	"leadboard_backend/internal/leads/domain"
	"leadboard_backend/internal/leads/repository"
	"leadboard_backend/platform/apperr"

	"github.com/google/uuid"
)

// ImportedLead is one validated spreadsheet row. Values are already
// normalized by the import pipeline.
type ImportedLead struct {
	Name       string
	Phone      string
	Email      string
	DocumentID string
	City       string
	Occupation string
	Notes      string
}

// ActiveCampaign returns the campaign when it exists and accepts new leads.
// Unknown and inactive campaigns are validation errors.
func (s *Service) ActiveCampaign(ctx context.Context, id uuid.UUID) (domain.Campaign, error) {
	campaign, err := s.repo.GetCampaign(ctx, id)
	if errors.Is(err, repository.ErrCampaignNotFound) {
		return domain.Campaign{}, apperr.Validation(msgCampaignNotFound)
	}
	if err != nil {
		return domain.Campaign{}, err
	}
	if !campaign.Active {
		return domain.Campaign{}, apperr.Validation("campaign is not active")
	}
	return campaign, nil
}

// PhoneExistsInCampaign reports a duplicate phone within a campaign.
func (s *Service) PhoneExistsInCampaign(ctx context.Context, campaignID uuid.UUID, phone string) (bool, error) {
	return s.repo.PhoneExistsInCampaign(ctx, campaignID, phone)
}

// CreateImported stores one imported lead in the Pending stage without owner.
func (s *Service) CreateImported(ctx context.Context, campaignID, actorID, jobID uuid.UUID, in ImportedLead) (uuid.UUID, error) {
	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		Name:       in.Name,
		Phone:      in.Phone,
		Email:      optional(in.Email),
		DocumentID: optional(in.DocumentID),
		City:       optional(in.City),
		Occupation: optional(in.Occupation),
		Notes:      optional(in.Notes),
		CampaignID: &campaignID,
		StageLabel: s.catalog.Label(domain.StagePending),
		StageKey:   domain.StagePending.Key(),
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		CampaignID:  lead.CampaignID,
		ActorID:     actorID,
		ImportJobID: &jobID,
	})
	return lead.ID, nil
}
