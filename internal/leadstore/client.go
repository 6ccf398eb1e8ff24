// Package leadstore is the HTTP client of the lead store API. It backs the
// board, the bulk coordinator and the import commands of the CLI.
package leadstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leadboard_backend/internal/board"
	importtransport "leadboard_backend/internal/imports/transport"
	"leadboard_backend/internal/leads/domain"
	"leadboard_backend/internal/leads/transport"
	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/httpkit"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const (
	apiPrefix       = "/api/v1"
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 200
	msgUnreachable  = "lead store unreachable"
)

// Config holds the connection settings.
type Config struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	PageSize int
}

// Client talks to the lead store API with the caller's bearer token.
type Client struct {
	http     *resty.Client
	pageSize int
}

// New creates a client. BaseURL is the server root, without /api/v1.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/") + apiPrefix)
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	return &Client{http: client, pageSize: cfg.PageSize}
}

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

// FetchLeads reads every page matching filter.
func (c *Client) FetchLeads(ctx context.Context, filter board.Filter) ([]board.Lead, error) {
	var out []board.Lead
	for page := 1; ; page++ {
		req := c.http.R().
			SetContext(ctx).
			SetQueryParam("page", fmt.Sprint(page)).
			SetQueryParam("pageSize", fmt.Sprint(c.pageSize))
		if filter.CampaignID != nil {
			req.SetQueryParam("campaignId", filter.CampaignID.String())
		}
		if filter.OwnerID != nil {
			req.SetQueryParam("ownerId", filter.OwnerID.String())
		}
		if filter.Search != "" {
			req.SetQueryParam("search", filter.Search)
		}

		var result transport.LeadListResponse
		resp, err := req.SetResult(&result).Get("/leads")
		if err := check(ctx, "leadstore.FetchLeads", resp, err); err != nil {
			return nil, err
		}

		for _, item := range result.Items {
			out = append(out, toLead(item))
		}
		if page >= result.TotalPages || len(result.Items) == 0 {
			return out, nil
		}
	}
}

// SetLeadOwner assigns ownerID to a lead; nil removes the owner.
func (c *Client) SetLeadOwner(ctx context.Context, leadID uuid.UUID, ownerID *uuid.UUID) (board.Lead, error) {
	var result transport.LeadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(transport.SetOwnerRequest{OwnerID: ownerID}).
		SetResult(&result).
		Put("/leads/" + leadID.String() + "/owner")
	if err := check(ctx, "leadstore.SetLeadOwner", resp, err); err != nil {
		return board.Lead{}, err
	}
	return toLead(result), nil
}

// SetLeadStage moves a lead to stageID, a canonical key or any label.
func (c *Client) SetLeadStage(ctx context.Context, leadID uuid.UUID, stageID string) (board.Lead, error) {
	var result transport.LeadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(transport.SetStageRequest{StageID: stageID}).
		SetResult(&result).
		Put("/leads/" + leadID.String() + "/stage")
	if err := check(ctx, "leadstore.SetLeadStage", resp, err); err != nil {
		return board.Lead{}, err
	}
	return toLead(result), nil
}

// FetchStageCatalog reads the server's stage definitions.
func (c *Client) FetchStageCatalog(ctx context.Context) ([]domain.Definition, error) {
	var result itemsResponse[transport.StageResponse]
	resp, err := c.http.R().SetContext(ctx).SetResult(&result).Get("/stages")
	if err := check(ctx, "leadstore.FetchStageCatalog", resp, err); err != nil {
		return nil, err
	}

	defs := make([]domain.Definition, 0, len(result.Items))
	for _, s := range result.Items {
		defs = append(defs, domain.Definition{
			Key:      s.ID,
			Label:    s.Label,
			Aliases:  s.Aliases,
			Terminal: s.Terminal,
			Position: s.Position,
		})
	}
	return defs, nil
}

// ListCampaigns returns the active campaigns.
func (c *Client) ListCampaigns(ctx context.Context) ([]transport.CampaignResponse, error) {
	var result itemsResponse[transport.CampaignResponse]
	resp, err := c.http.R().SetContext(ctx).SetResult(&result).Get("/campaigns")
	if err := check(ctx, "leadstore.ListCampaigns", resp, err); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// UploadForPreview sends a file for parsing. No lead is created.
func (c *Client) UploadForPreview(ctx context.Context, fileName string, body io.Reader) (importtransport.PreviewResponse, error) {
	var result importtransport.PreviewResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", fileName, body).
		SetResult(&result).
		Post("/imports/preview")
	if err := check(ctx, "leadstore.UploadForPreview", resp, err); err != nil {
		return importtransport.PreviewResponse{}, err
	}
	return result, nil
}

// ConfirmImport starts an import job for a preview.
func (c *Client) ConfirmImport(ctx context.Context, req importtransport.ConfirmImportRequest) (importtransport.JobResponse, error) {
	var result importtransport.JobResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/imports/confirm")
	if err := check(ctx, "leadstore.ConfirmImport", resp, err); err != nil {
		return importtransport.JobResponse{}, err
	}
	return result, nil
}

// PollImportJob reads the current snapshot of a job.
func (c *Client) PollImportJob(ctx context.Context, jobID uuid.UUID) (importtransport.JobResponse, error) {
	var result importtransport.JobResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/imports/jobs/" + jobID.String())
	if err := check(ctx, "leadstore.PollImportJob", resp, err); err != nil {
		return importtransport.JobResponse{}, err
	}
	return result, nil
}

func toLead(r transport.LeadResponse) board.Lead {
	return board.Lead{
		ID:         r.ID,
		Name:       r.Name,
		Phone:      r.Phone,
		CampaignID: r.CampaignID,
		StageLabel: r.StageLabel,
		OwnerID:    r.OwnerID,
		UpdatedAt:  r.UpdatedAt,
	}
}

// check turns transport failures and error responses into apperr errors.
func check(ctx context.Context, op string, resp *resty.Response, err error) error {
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return apperr.Transient(msgUnreachable, err).WithOp(op)
	}
	if resp.IsSuccess() {
		return nil
	}

	var body httpkit.ErrorResponse
	_ = json.Unmarshal(resp.Body(), &body)

	kind, ok := httpkit.ParseKindName(body.Kind)
	if !ok {
		kind = apperr.KindFromStatus(resp.StatusCode())
	}
	message := body.Error
	if message == "" {
		message = http.StatusText(resp.StatusCode())
	}

	appErr := apperr.New(kind, message).WithOp(op)
	if body.Details != nil {
		appErr = appErr.WithDetails(body.Details)
	}
	return appErr
}

var (
	_ board.LeadStore = (*Client)(nil)
)
