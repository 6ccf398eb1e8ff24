package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// ConfirmImportRequest maps preview headers to field keys for one campaign.
type ConfirmImportRequest struct {
	PreviewID  uuid.UUID         `json:"previewId" validate:"required"`
	CampaignID uuid.UUID         `json:"campaignId" validate:"required"`
	Mapping    map[string]string `json:"mapping"`
}

// Response DTOs

type FieldResponse struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Required bool     `json:"required"`
	Aliases  []string `json:"aliases,omitempty"`
}

type PreviewResponse struct {
	ID               uuid.UUID         `json:"id"`
	FileName         string            `json:"fileName"`
	Headers          []string          `json:"headers"`
	SampleRows       [][]string        `json:"sampleRows"`
	TotalRows        int               `json:"totalRows"`
	Delimiter        string            `json:"delimiter"`
	SuggestedMapping map[string]string `json:"suggestedMapping"`
	ExpiresAt        time.Time         `json:"expiresAt"`
}

type RowErrorResponse struct {
	Row    int      `json:"row"`
	Issues []string `json:"issues"`
}

type JobResponse struct {
	ID           uuid.UUID          `json:"id"`
	CampaignID   uuid.UUID          `json:"campaignId"`
	FileName     string             `json:"fileName"`
	Status       string             `json:"status"`
	TotalRows    int                `json:"totalRows"`
	Processed    int                `json:"processed"`
	Created      int                `json:"created"`
	Failed       int                `json:"failed"`
	Errors       []RowErrorResponse `json:"errors"`
	ErrorMessage *string            `json:"errorMessage,omitempty"`
	StartedAt    *time.Time         `json:"startedAt,omitempty"`
	FinishedAt   *time.Time         `json:"finishedAt,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
}

type FileURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
