package service

import (
	"sort"

	"leadboard_backend/internal/imports/domain"
	"leadboard_backend/internal/imports/transport"
)

func toPreviewResponse(p domain.Preview) transport.PreviewResponse {
	sampleRows := p.SampleRows
	if sampleRows == nil {
		sampleRows = [][]string{}
	}
	return transport.PreviewResponse{
		ID:               p.ID,
		FileName:         p.FileName,
		Headers:          p.Headers,
		SampleRows:       sampleRows,
		TotalRows:        p.TotalRows,
		Delimiter:        p.Delimiter,
		SuggestedMapping: p.SuggestedMapping,
		ExpiresAt:        p.ExpiresAt,
	}
}

func toJobResponse(j domain.Job) transport.JobResponse {
	rowErrors := make([]transport.RowErrorResponse, 0, len(j.Errors))
	for _, e := range j.Errors {
		rowErrors = append(rowErrors, transport.RowErrorResponse{Row: e.Row, Issues: e.Issues})
	}
	return transport.JobResponse{
		ID:           j.ID,
		CampaignID:   j.CampaignID,
		FileName:     j.FileName,
		Status:       string(j.Status),
		TotalRows:    j.TotalRows,
		Processed:    j.Processed,
		Created:      j.Created,
		Failed:       j.Failed,
		Errors:       rowErrors,
		ErrorMessage: j.ErrorMessage,
		StartedAt:    j.StartedAt,
		FinishedAt:   j.FinishedAt,
		CreatedAt:    j.CreatedAt,
	}
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}
