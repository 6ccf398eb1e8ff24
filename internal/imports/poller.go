package imports

import (
	"context"
	"time"

	"leadboard_backend/internal/imports/domain"
	"leadboard_backend/internal/imports/transport"
	"leadboard_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	defaultPollInterval = time.Second
	defaultMaxPollFails = 3
)

// JobSource reads job snapshots. Reads are idempotent.
type JobSource interface {
	PollImportJob(ctx context.Context, jobID uuid.UUID) (transport.JobResponse, error)
}

// Poller observes an import job until it reaches a terminal status.
type Poller struct {
	source   JobSource
	interval time.Duration
	// MaxConsecutiveFailures bounds transient poll errors tolerated in a row.
	MaxConsecutiveFailures int
}

// NewPoller creates a poller. A non-positive interval uses one second.
func NewPoller(source JobSource, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{source: source, interval: interval, MaxConsecutiveFailures: defaultMaxPollFails}
}

// Wait polls jobID until it is completed or failed, then fetches the final
// snapshot once more and stops. onProgress, if set, sees every snapshot.
// Cancelling ctx only detaches the observer; the job keeps running and the
// last snapshot seen is returned with the context error.
func (p *Poller) Wait(ctx context.Context, jobID uuid.UUID, onProgress func(transport.JobResponse)) (transport.JobResponse, error) {
	var (
		last     transport.JobResponse
		failures int
	)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		snapshot, err := p.source.PollImportJob(ctx, jobID)
		switch {
		case err == nil:
			failures = 0
			last = snapshot
			if onProgress != nil {
				onProgress(snapshot)
			}
			if domain.JobStatus(snapshot.Status).Terminal() {
				final, err := p.source.PollImportJob(ctx, jobID)
				if err != nil {
					return snapshot, nil
				}
				return final, nil
			}
		case ctx.Err() != nil:
			return last, ctx.Err()
		case apperr.IsRetryable(err) && failures < p.MaxConsecutiveFailures:
			failures++
		default:
			return last, err
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}
