package adapters

import (
	"context"

	importsdomain "leadboard_backend/internal/imports/domain"
	leadservice "leadboard_backend/internal/leads/service"

	"github.com/google/uuid"
)

// ImportsLeadSink adapts the leads service for the import executor.
type ImportsLeadSink struct {
	leads *leadservice.Service
}

func NewImportsLeadSink(leads *leadservice.Service) *ImportsLeadSink {
	return &ImportsLeadSink{leads: leads}
}

func (a *ImportsLeadSink) EnsureCampaignActive(ctx context.Context, campaignID uuid.UUID) error {
	_, err := a.leads.ActiveCampaign(ctx, campaignID)
	return err
}

func (a *ImportsLeadSink) PhoneExistsInCampaign(ctx context.Context, campaignID uuid.UUID, phone string) (bool, error) {
	return a.leads.PhoneExistsInCampaign(ctx, campaignID, phone)
}

// CreateLead creates one unassigned lead attributed to the job's actor.
func (a *ImportsLeadSink) CreateLead(ctx context.Context, job importsdomain.Job, in importsdomain.LeadInput) (uuid.UUID, error) {
	return a.leads.CreateImported(ctx, job.CampaignID, job.ActorID, job.ID, leadservice.ImportedLead{
		Name:       in.Name,
		Phone:      in.Phone,
		Email:      in.Email,
		DocumentID: in.DocumentID,
		City:       in.City,
		Occupation: in.Occupation,
		Notes:      in.Notes,
	})
}
