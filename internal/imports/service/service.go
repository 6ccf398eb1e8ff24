// Package service implements the import pipeline: upload preview, mapping
// confirmation, job execution and progress snapshots.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"leadboard_backend/internal/adapters/storage"
	"leadboard_backend/internal/events"
	"leadboard_backend/internal/imports/domain"
	"leadboard_backend/internal/imports/repository"
	"leadboard_backend/internal/imports/transport"
	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/logger"
	"leadboard_backend/platform/validator"

	"github.com/google/uuid"
)

const (
	defaultSampleRows = 5
	defaultMaxRows    = 10000

	msgPreviewNotFound = "import preview not found or expired"
	msgJobNotFound     = "import job not found"

	previewPrefix = "previews/"
	// previewGrace keeps a just-expired preview's file around for a
	// confirmation that is still in flight.
	previewGrace = 5 * time.Minute

	defaultFinishAttempts = 4
	defaultFinishBackoff  = 200 * time.Millisecond
)

// FileStore is the object storage used for uploaded files.
type FileStore interface {
	UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)
	DownloadFile(ctx context.Context, bucket, fileKey string) (io.ReadCloser, error)
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*storage.PresignedURL, error)
	DeleteObject(ctx context.Context, bucket, fileKey string) error
	ListObjectsBefore(ctx context.Context, bucket, prefix string, before time.Time) ([]string, error)
}

// LeadSink creates the leads of an import. EnsureCampaignActive returns a
// validation error when the campaign is unknown or closed.
type LeadSink interface {
	EnsureCampaignActive(ctx context.Context, campaignID uuid.UUID) error
	PhoneExistsInCampaign(ctx context.Context, campaignID uuid.UUID, phone string) (bool, error)
	CreateLead(ctx context.Context, job domain.Job, in domain.LeadInput) (uuid.UUID, error)
}

// Enqueuer hands a confirmed job to the worker.
type Enqueuer interface {
	EnqueueImportJob(ctx context.Context, jobID uuid.UUID) error
}

// Settings are the import limits.
type Settings struct {
	Bucket      string
	MaxFileSize int64
	SampleRows  int
	MaxRows     int
	PhoneRegion string
}

// Service handles import pipeline operations.
type Service struct {
	jobs     repository.JobStore
	previews repository.Previews
	files    FileStore
	leads    LeadSink
	enqueuer Enqueuer
	eventBus events.Bus
	val      *validator.Validator
	settings Settings
	log      *logger.Logger
	now      func() time.Time

	finishAttempts int
	finishBackoff  time.Duration
}

// New creates an import service. enqueuer may be nil in processes that only
// execute jobs.
func New(jobs repository.JobStore, previews repository.Previews, files FileStore, leads LeadSink, enqueuer Enqueuer, eventBus events.Bus, val *validator.Validator, settings Settings, log *logger.Logger) *Service {
	if settings.SampleRows <= 0 {
		settings.SampleRows = defaultSampleRows
	}
	if settings.MaxRows <= 0 {
		settings.MaxRows = defaultMaxRows
	}
	return &Service{
		jobs:     jobs,
		previews: previews,
		files:    files,
		leads:    leads,
		enqueuer: enqueuer,
		eventBus: eventBus,
		val:      val,
		settings: settings,
		log:      log,
		now:      time.Now,

		finishAttempts: defaultFinishAttempts,
		finishBackoff:  defaultFinishBackoff,
	}
}

// Fields returns the field catalog.
func (s *Service) Fields() []transport.FieldResponse {
	fields := domain.Fields()
	out := make([]transport.FieldResponse, 0, len(fields))
	for _, f := range fields {
		out = append(out, transport.FieldResponse{Key: f.Key, Label: f.Label, Required: f.Required, Aliases: f.Aliases})
	}
	return out
}

// Upload is an uploaded file.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Preview parses an upload, stores the file and returns headers, a sample and
// a suggested mapping. No lead is created.
func (s *Service) Preview(ctx context.Context, actorID uuid.UUID, upload Upload) (transport.PreviewResponse, error) {
	if !domain.Supported(upload.FileName) {
		return transport.PreviewResponse{}, apperr.Validation(domain.ErrUnsupportedFile.Error())
	}
	if err := storage.ValidateContentType(upload.ContentType); err != nil {
		return transport.PreviewResponse{}, apperr.Validation(err.Error())
	}

	data, err := readLimited(upload.Body, s.settings.MaxFileSize)
	if err != nil {
		return transport.PreviewResponse{}, err
	}

	table, err := domain.ReadTable(bytes.NewReader(data), s.settings.MaxRows)
	if err != nil {
		return transport.PreviewResponse{}, tableError(err)
	}

	id := uuid.New()
	key, err := s.files.UploadFile(ctx, s.settings.Bucket, previewPrefix+id.String(), upload.FileName, contentTypeOrDefault(upload.ContentType), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return transport.PreviewResponse{}, apperr.Transient("could not store uploaded file", err)
	}

	now := s.now()
	preview := domain.Preview{
		ID:               id,
		ActorID:          actorID,
		FileName:         upload.FileName,
		ObjectKey:        key,
		Headers:          table.Headers,
		SampleRows:       sample(table, s.settings.SampleRows),
		TotalRows:        len(table.Rows),
		Delimiter:        string(table.Delimiter),
		SuggestedMapping: domain.SuggestMapping(table.Headers),
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.previews.TTL()),
	}
	if err := s.previews.Save(ctx, preview); err != nil {
		s.removeObject(ctx, key)
		return transport.PreviewResponse{}, apperr.Transient("could not store preview", err)
	}

	s.log.Info("import preview created", "previewId", id, "fileName", upload.FileName, "rows", preview.TotalRows)
	return toPreviewResponse(preview), nil
}

// CancelPreview discards a preview and its uploaded file.
func (s *Service) CancelPreview(ctx context.Context, actorID, previewID uuid.UUID) error {
	preview, err := s.ownedPreview(ctx, actorID, previewID)
	if err != nil {
		return err
	}
	if err := s.previews.Delete(ctx, previewID); err != nil && !errors.Is(err, repository.ErrPreviewNotFound) {
		return err
	}
	s.removeObject(ctx, preview.ObjectKey)
	return nil
}

// ConfirmInput is the caller's mapping for a preview.
type ConfirmInput struct {
	PreviewID  uuid.UUID
	CampaignID uuid.UUID
	Mapping    domain.Mapping
}

// Confirm validates the mapping, creates the job and hands it to the worker.
// The preview is consumed only once the job row exists; a failed confirm
// leaves it in place.
func (s *Service) Confirm(ctx context.Context, actorID uuid.UUID, in ConfirmInput) (transport.JobResponse, error) {
	if err := validateMapping(in.Mapping); err != nil {
		return transport.JobResponse{}, err
	}

	preview, err := s.ownedPreview(ctx, actorID, in.PreviewID)
	if err != nil {
		return transport.JobResponse{}, err
	}
	var unknownHeaders []string
	for header := range in.Mapping {
		if !preview.HasHeader(header) {
			unknownHeaders = append(unknownHeaders, header)
		}
	}
	if len(unknownHeaders) > 0 {
		return transport.JobResponse{}, apperr.Validation("mapping references headers that are not in the file").
			WithDetails(map[string]any{"unknownHeaders": sortedCopy(unknownHeaders)})
	}

	if err := s.leads.EnsureCampaignActive(ctx, in.CampaignID); err != nil {
		return transport.JobResponse{}, err
	}

	job, err := s.jobs.Create(ctx, repository.CreateJobParams{
		CampaignID: in.CampaignID,
		ActorID:    actorID,
		FileName:   preview.FileName,
		ObjectKey:  preview.ObjectKey,
		Mapping:    in.Mapping,
		TotalRows:  preview.TotalRows,
	})
	if err != nil {
		return transport.JobResponse{}, apperr.Transient("could not create import job", err)
	}

	if _, err := s.previews.Take(ctx, in.PreviewID); err != nil {
		if derr := s.jobs.Discard(ctx, job.ID); derr != nil {
			s.log.Error("import job discard failed", "jobId", job.ID, "error", derr)
		}
		if errors.Is(err, repository.ErrPreviewNotFound) {
			return transport.JobResponse{}, apperr.NotFound(msgPreviewNotFound)
		}
		return transport.JobResponse{}, apperr.Transient("could not consume import preview", err)
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueImportJob(ctx, job.ID); err != nil {
			msg := "import could not be scheduled"
			if failed, ok, ferr := s.jobs.Finish(ctx, job.ID, domain.JobFailed, job.TotalRows, domain.Progress{}, &msg); ferr == nil && ok {
				job = failed
			}
			s.log.Error("import job enqueue failed", "jobId", job.ID, "error", err)
			return transport.JobResponse{}, apperr.Transient(msg, err)
		}
	}

	s.log.ImportJobTransition(job.ID.String(), string(job.Status), 0, 0, 0)
	s.publishProgress(ctx, job, domain.Progress{})
	return toJobResponse(job), nil
}

// GetJob returns the current snapshot of a job. It has no side effects.
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (transport.JobResponse, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if errors.Is(err, repository.ErrJobNotFound) {
		return transport.JobResponse{}, apperr.NotFound(msgJobNotFound)
	}
	if err != nil {
		return transport.JobResponse{}, err
	}
	return toJobResponse(job), nil
}

// JobFileURL returns a short-lived download link for the job's source file.
func (s *Service) JobFileURL(ctx context.Context, id uuid.UUID) (transport.FileURLResponse, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if errors.Is(err, repository.ErrJobNotFound) {
		return transport.FileURLResponse{}, apperr.NotFound(msgJobNotFound)
	}
	if err != nil {
		return transport.FileURLResponse{}, err
	}
	url, err := s.files.GenerateDownloadURL(ctx, s.settings.Bucket, job.ObjectKey)
	if err != nil {
		return transport.FileURLResponse{}, apperr.Transient("could not create download link", err)
	}
	return transport.FileURLResponse{URL: url.URL, ExpiresAt: url.ExpiresAt}, nil
}

// CleanupFinished deletes terminal jobs finished before cutoff together with
// their files. Returns the number of deleted jobs.
func (s *Service) CleanupFinished(ctx context.Context, cutoff time.Time) (int, error) {
	keys, err := s.jobs.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		s.removeObject(ctx, key)
	}
	return len(keys), nil
}

// FailStaleJobs fails processing jobs with no write since before. Their
// worker is gone and asynq will not claim them again.
func (s *Service) FailStaleJobs(ctx context.Context, before time.Time) (int, error) {
	jobs, err := s.jobs.FailStale(ctx, before, msgImportInterrupt)
	if err != nil {
		return 0, err
	}
	for _, job := range jobs {
		s.log.ImportJobTransition(job.ID.String(), string(job.Status), job.Processed, job.Created, job.Failed)
		s.publishProgress(ctx, job, domain.Progress{Processed: job.Processed, Created: job.Created, Failed: job.Failed})
	}
	return len(jobs), nil
}

// CleanupExpiredPreviews deletes uploaded preview files whose preview has
// expired and that no job refers to. Returns the number of deleted files.
func (s *Service) CleanupExpiredPreviews(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.previews.TTL() - previewGrace)
	keys, err := s.files.ListObjectsBefore(ctx, s.settings.Bucket, previewPrefix, cutoff)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	inUse, err := s.jobs.ObjectKeysInUse(ctx, keys)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		if inUse[key] {
			continue
		}
		if err := s.files.DeleteObject(ctx, s.settings.Bucket, key); err != nil {
			s.log.Warn("expired preview file cleanup failed", "objectKey", key, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *Service) ownedPreview(ctx context.Context, actorID, previewID uuid.UUID) (domain.Preview, error) {
	preview, err := s.previews.Get(ctx, previewID)
	if errors.Is(err, repository.ErrPreviewNotFound) {
		return domain.Preview{}, apperr.NotFound(msgPreviewNotFound)
	}
	if err != nil {
		return domain.Preview{}, err
	}
	if preview.ActorID != actorID {
		return domain.Preview{}, apperr.NotFound(msgPreviewNotFound)
	}
	return preview, nil
}

func (s *Service) removeObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.files.DeleteObject(ctx, s.settings.Bucket, key); err != nil {
		s.log.Warn("import file cleanup failed", "objectKey", key, "error", err)
	}
}

func (s *Service) publishProgress(ctx context.Context, job domain.Job, progress domain.Progress) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, events.ImportJobProgressed{
		BaseEvent: events.NewBaseEvent(),
		JobID:     job.ID,
		ActorID:   job.ActorID,
		Status:    string(job.Status),
		TotalRows: job.TotalRows,
		Processed: progress.Processed,
		Created:   progress.Created,
		Failed:    progress.Failed,
	})
}

func validateMapping(mapping domain.Mapping) error {
	if len(mapping) == 0 {
		return apperr.Validation("mapping is required").
			WithDetails(map[string]any{"missingFields": domain.Mapping{}.MissingRequired()})
	}

	seen := make(map[string]string, len(mapping))
	for header, field := range mapping {
		if _, ok := domain.LookupField(field); !ok {
			return apperr.Validation(fmt.Sprintf("unknown field %q", field)).
				WithDetails(map[string]any{"header": header, "field": field})
		}
		if other, dup := seen[field]; dup {
			return apperr.Validation(fmt.Sprintf("field %q is mapped more than once", field)).
				WithDetails(map[string]any{"headers": sortedCopy([]string{other, header})})
		}
		seen[field] = header
	}

	if missing := mapping.MissingRequired(); len(missing) > 0 {
		return apperr.Validation("required fields are not mapped: " + strings.Join(missing, ", ")).
			WithDetails(map[string]any{"missingFields": missing})
	}
	return nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.BadRequest("could not read uploaded file")
	}
	if err := storage.ValidateFileSize(int64(len(data)), limit); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	return data, nil
}

func tableError(err error) error {
	var tooMany domain.TooManyRowsError
	switch {
	case errors.As(err, &tooMany):
		return apperr.Validation(err.Error()).WithDetails(map[string]any{"maxRows": tooMany.Limit})
	case errors.Is(err, domain.ErrEmptyFile):
		return apperr.Validation(err.Error())
	default:
		return apperr.Wrap(apperr.KindValidation, "file could not be parsed", err)
	}
}

func sample(table domain.Table, n int) [][]string {
	if n > len(table.Rows) {
		n = len(table.Rows)
	}
	out := make([][]string, 0, n)
	for _, row := range table.Rows[:n] {
		out = append(out, row.Values)
	}
	return out
}

func contentTypeOrDefault(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return "text/csv"
	}
	return contentType
}
