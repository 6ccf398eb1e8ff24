package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"leadboard_backend/internal/imports/domain"
	"leadboard_backend/platform/apperr"

	"github.com/google/uuid"
)

// flushEvery is the number of rows between progress writes.
const flushEvery = 25

const (
	msgCampaignGone    = "destination campaign is no longer available"
	msgFileUnreadable  = "uploaded file could not be read"
	msgImportInterrupt = "import was interrupted"
)

// abortError stops a job as failed with a user-facing message.
type abortError struct {
	message string
	cause   error
}

func (e *abortError) Error() string {
	if e.cause == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.cause)
}

func (e *abortError) Unwrap() error { return e.cause }

// Execute runs a confirmed job. Rows are processed in file order; row issues
// are recorded and never stop the job. Only losing the campaign or the file
// fails the whole job. A job that is no longer pending is skipped.
func (s *Service) Execute(ctx context.Context, jobID uuid.UUID) error {
	job, claimed, err := s.jobs.Claim(ctx, jobID)
	if err != nil {
		return err
	}
	if !claimed {
		s.log.Info("import job not pending, skipping", "jobId", jobID)
		return nil
	}
	s.log.ImportJobTransition(job.ID.String(), string(job.Status), 0, 0, 0)
	s.publishProgress(ctx, job, domain.Progress{})

	progress, runErr := s.run(ctx, job)

	// The terminal write must land even when the worker is shutting down.
	finishCtx := context.WithoutCancel(ctx)
	status := domain.JobCompleted
	var message *string
	if runErr != nil {
		status = domain.JobFailed
		msg := msgImportInterrupt
		var abort *abortError
		if errors.As(runErr, &abort) {
			msg = abort.message
		}
		message = &msg
		s.log.Warn("import job failed", "jobId", job.ID, "error", runErr)
	}

	finished, ok, err := s.finish(finishCtx, job, status, progress, message)
	if err != nil {
		s.log.Error("import job terminal write failed", "jobId", job.ID, "status", status, "error", err)
		return err
	}
	if !ok {
		return nil
	}
	s.log.ImportJobTransition(finished.ID.String(), string(finished.Status), progress.Processed, progress.Created, progress.Failed)
	s.publishProgress(finishCtx, finished, progress)
	return nil
}

// finish writes the terminal status, retrying with backoff. A job left in
// processing after the last attempt is failed later by FailStaleJobs.
func (s *Service) finish(ctx context.Context, job domain.Job, status domain.JobStatus, progress domain.Progress, message *string) (domain.Job, bool, error) {
	wait := s.finishBackoff
	for attempt := 1; ; attempt++ {
		finished, ok, err := s.jobs.Finish(ctx, job.ID, status, job.TotalRows, progress, message)
		if err == nil {
			return finished, ok, nil
		}
		if attempt >= s.finishAttempts {
			return domain.Job{}, false, err
		}
		s.log.Warn("import job terminal write failed, retrying", "jobId", job.ID, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return domain.Job{}, false, err
		case <-time.After(wait):
		}
		wait *= 2
	}
}

func (s *Service) run(ctx context.Context, job domain.Job) (domain.Progress, error) {
	var progress domain.Progress

	if err := s.leads.EnsureCampaignActive(ctx, job.CampaignID); err != nil {
		return progress, campaignError(err)
	}

	file, err := s.files.DownloadFile(ctx, s.settings.Bucket, job.ObjectKey)
	if err != nil {
		return progress, &abortError{message: msgFileUnreadable, cause: err}
	}
	defer file.Close()

	table, err := domain.NewTableReader(file)
	if err != nil {
		return progress, &abortError{message: msgFileUnreadable, cause: err}
	}

	rows := domain.NewRowValidator(s.val, s.settings.PhoneRegion, table.Headers(), job.Mapping)
	seen := make(map[string]int)

	for {
		if err := ctx.Err(); err != nil {
			return progress, err
		}

		row, readErr := table.Next()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil && row.Number == 0 {
			return progress, &abortError{message: msgFileUnreadable, cause: readErr}
		}

		var issues []string
		if readErr != nil {
			issues = []string{"malformed row: " + readErr.Error()}
		} else {
			issues, err = s.importRow(ctx, job, rows, row, seen)
			if err != nil {
				return progress, err
			}
		}

		if issues == nil {
			progress.Record(true, nil)
		} else {
			progress.Record(false, &domain.RowError{Row: row.Number, Issues: issues})
		}

		if progress.Processed%flushEvery == 0 {
			if err := s.flush(ctx, job, progress); err != nil {
				return progress, err
			}
		}
	}
	return progress, nil
}

// importRow validates and stores one row. It returns the row's issues, or an
// error that must stop the job.
func (s *Service) importRow(ctx context.Context, job domain.Job, rows *domain.RowValidator, row domain.Row, seen map[string]int) ([]string, error) {
	in, issues := rows.Validate(row)
	if issues != nil {
		return issues, nil
	}

	if first, dup := seen[in.Phone]; dup {
		return []string{fmt.Sprintf("phone %s is repeated from row %d", in.Phone, first)}, nil
	}
	exists, err := s.leads.PhoneExistsInCampaign(ctx, job.CampaignID, in.Phone)
	if err != nil {
		return nil, err
	}
	if exists {
		return []string{fmt.Sprintf("phone %s already exists in this campaign", in.Phone)}, nil
	}

	if _, err := s.leads.CreateLead(ctx, job, in); err != nil {
		if cerr := s.leads.EnsureCampaignActive(ctx, job.CampaignID); cerr != nil {
			return nil, campaignError(cerr)
		}
		s.log.Warn("import row could not be saved", "jobId", job.ID, "row", row.Number, "error", err)
		return []string{"lead could not be saved"}, nil
	}

	seen[in.Phone] = row.Number
	return nil, nil
}

// flush writes the counters and checks that the campaign still accepts leads.
func (s *Service) flush(ctx context.Context, job domain.Job, progress domain.Progress) error {
	if err := s.jobs.SaveProgress(ctx, job.ID, job.TotalRows, progress); err != nil {
		return err
	}
	s.publishProgress(ctx, job, progress)

	if err := s.leads.EnsureCampaignActive(ctx, job.CampaignID); err != nil {
		return campaignError(err)
	}
	return nil
}

func campaignError(err error) error {
	if apperr.Is(err, apperr.KindValidation) {
		return &abortError{message: msgCampaignGone, cause: err}
	}
	return err
}
