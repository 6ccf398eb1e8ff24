package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type ListLeadsRequest struct {
	CampaignID string `form:"campaignId" validate:"omitempty,uuid"`
	Stage      string `form:"stage" validate:"max=100"`
	OwnerID    string `form:"ownerId" validate:"omitempty,uuid"`
	Unassigned bool   `form:"unassigned"`
	Search     string `form:"search" validate:"max=100"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}

type CreateLeadRequest struct {
	Name       string     `json:"name" validate:"required,min=1,max=200"`
	Phone      string     `json:"phone" validate:"required,min=5,max=40"`
	Email      string     `json:"email,omitempty" validate:"omitempty,email,max=254"`
	DocumentID string     `json:"documentId,omitempty" validate:"max=40"`
	City       string     `json:"city,omitempty" validate:"max=100"`
	Occupation string     `json:"occupation,omitempty" validate:"max=100"`
	Notes      string     `json:"notes,omitempty" validate:"max=2000"`
	CampaignID *uuid.UUID `json:"campaignId,omitempty"`
}

// SetOwnerRequest assigns OwnerID; a null owner removes the current one.
type SetOwnerRequest struct {
	OwnerID *uuid.UUID `json:"ownerId"`
}

// SetStageRequest accepts a canonical stage id or any catalog label.
type SetStageRequest struct {
	StageID string `json:"stageId" validate:"required,max=100"`
}

// Response DTOs

type AssignmentResponse struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"ownerId"`
	ActorID    uuid.UUID `json:"actorId"`
	AssignedAt time.Time `json:"assignedAt"`
	Active     bool      `json:"active"`
}

type LeadResponse struct {
	ID          uuid.UUID            `json:"id"`
	Name        string               `json:"name"`
	Phone       string               `json:"phone"`
	Email       *string              `json:"email,omitempty"`
	DocumentID  *string              `json:"documentId,omitempty"`
	City        *string              `json:"city,omitempty"`
	Occupation  *string              `json:"occupation,omitempty"`
	Notes       *string              `json:"notes,omitempty"`
	CampaignID  *uuid.UUID           `json:"campaignId,omitempty"`
	StageLabel  string               `json:"stageLabel"`
	StageID     string               `json:"stageId"`
	OwnerID     *uuid.UUID           `json:"ownerId,omitempty"`
	Assignments []AssignmentResponse `json:"assignments"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type StageResponse struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Aliases  []string `json:"aliases"`
	Terminal bool     `json:"terminal"`
	Position int      `json:"position"`
}

type CampaignResponse struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

type ActivityResponse struct {
	ID        uuid.UUID      `json:"id"`
	ActorID   uuid.UUID      `json:"actorId"`
	Action    string         `json:"action"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
