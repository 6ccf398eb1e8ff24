package leadstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"leadboard_backend/internal/board"
	"leadboard_backend/internal/imports"
	importtransport "leadboard_backend/internal/imports/transport"
	"leadboard_backend/internal/leads/transport"
	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/httpkit"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ imports.JobSource = (*Client)(nil)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestFetchLeadsReadsEveryPage(t *testing.T) {
	owner := uuid.New()
	var mu sync.Mutex
	var pages []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/leads", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		page := r.URL.Query().Get("page")
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()

		item := transport.LeadResponse{ID: uuid.New(), Name: "Lead " + page, StageLabel: "Pending"}
		if page == "2" {
			item.OwnerID = &owner
			item.StageLabel = "Asignado"
		}
		writeJSON(w, http.StatusOK, transport.LeadListResponse{Items: []transport.LeadResponse{item}, Total: 2, Page: 1, PageSize: 1, TotalPages: 2})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/", Token: "secret", PageSize: 1})
	leads, err := c.FetchLeads(context.Background(), board.Filter{})
	require.NoError(t, err)

	require.Len(t, leads, 2)
	assert.Equal(t, []string{"1", "2"}, pages)
	assert.False(t, leads[0].HasOwner())
	assert.Equal(t, &owner, leads[1].OwnerID)
	assert.Equal(t, "Asignado", leads[1].StageLabel)
}

func TestSetLeadStageSendsStageAndMapsErrors(t *testing.T) {
	leadID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/leads/"+leadID.String()+"/stage", r.URL.Path)
		var req transport.SetStageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req.StageID {
		case "won":
			writeJSON(w, http.StatusPreconditionFailed, httpkit.ErrorResponse{Error: "lead has no owner", Kind: "precondition"})
		case "lost":
			writeJSON(w, http.StatusBadGateway, map[string]string{})
		default:
			writeJSON(w, http.StatusOK, transport.LeadResponse{ID: leadID, StageLabel: "Contactado"})
		}
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	lead, err := c.SetLeadStage(context.Background(), leadID, "contacted")
	require.NoError(t, err)
	assert.Equal(t, "Contactado", lead.StageLabel)

	_, err = c.SetLeadStage(context.Background(), leadID, "won")
	assert.True(t, apperr.Is(err, apperr.KindPrecondition), "got %v", err)
	assert.Contains(t, err.Error(), "lead has no owner")

	_, err = c.SetLeadStage(context.Background(), leadID, "lost")
	assert.True(t, apperr.IsRetryable(err), "got %v", err)
}

func TestUnreachableServerIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url})
	_, err := c.FetchStageCatalog(context.Background())
	assert.True(t, apperr.IsRetryable(err), "got %v", err)
}

func TestFetchStageCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": []transport.StageResponse{
			{ID: "pending", Label: "Pendiente", Aliases: []string{"nuevo"}, Position: 0},
			{ID: "won", Label: "Ganado", Terminal: true, Position: 3},
		}})
	}))
	defer srv.Close()

	defs, err := New(Config{BaseURL: srv.URL}).FetchStageCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "pending", defs[0].Key)
	assert.Equal(t, []string{"nuevo"}, defs[0].Aliases)
	assert.True(t, defs[1].Terminal)
}

func TestUploadConfirmAndPoll(t *testing.T) {
	previewID, campaignID, jobID := uuid.New(), uuid.New(), uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/imports/preview":
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			data, _ := io.ReadAll(file)
			assert.Equal(t, "leads.csv", header.Filename)
			assert.Equal(t, "Nombre,Celular\n", string(data))
			writeJSON(w, http.StatusCreated, importtransport.PreviewResponse{ID: previewID, Headers: []string{"Nombre", "Celular"}})
		case "/api/v1/imports/confirm":
			var req importtransport.ConfirmImportRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, previewID, req.PreviewID)
			assert.Equal(t, "phone", req.Mapping["Celular"])
			writeJSON(w, http.StatusAccepted, importtransport.JobResponse{ID: jobID, CampaignID: req.CampaignID, Status: "pending"})
		case "/api/v1/imports/jobs/" + jobID.String():
			writeJSON(w, http.StatusOK, importtransport.JobResponse{ID: jobID, Status: "completed", Processed: 3, Created: 3})
		default:
			writeJSON(w, http.StatusNotFound, httpkit.ErrorResponse{Error: "not found", Kind: "not_found"})
		}
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	ctx := context.Background()

	preview, err := c.UploadForPreview(ctx, "leads.csv", strings.NewReader("Nombre,Celular\n"))
	require.NoError(t, err)
	assert.Equal(t, previewID, preview.ID)

	job, err := c.ConfirmImport(ctx, importtransport.ConfirmImportRequest{
		PreviewID:  preview.ID,
		CampaignID: campaignID,
		Mapping:    map[string]string{"Nombre": "name", "Celular": "phone"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", job.Status)

	final, err := c.PollImportJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, final.Created)

	_, err = c.PollImportJob(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
}
