package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle status of an import job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the job will not change anymore.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// RowError is the report entry of one rejected row.
type RowError struct {
	Row    int      `json:"row"`
	Issues []string `json:"issues"`
}

// Job is the authoritative state of an import.
type Job struct {
	ID           uuid.UUID
	CampaignID   uuid.UUID
	ActorID      uuid.UUID
	FileName     string
	ObjectKey    string
	Mapping      Mapping
	TotalRows    int
	Processed    int
	Created      int
	Failed       int
	Errors       []RowError
	Status       JobStatus
	ErrorMessage *string
	StartedAt    *time.Time
	FinishedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Progress is a counter snapshot written while a job executes.
type Progress struct {
	Processed int
	Created   int
	Failed    int
	Errors    []RowError
}

// Record adds the outcome of one row.
func (p *Progress) Record(created bool, rowErr *RowError) {
	p.Processed++
	if created {
		p.Created++
		return
	}
	p.Failed++
	if rowErr != nil {
		p.Errors = append(p.Errors, *rowErr)
	}
}

// Preview is the result of an upload, kept until it is confirmed, cancelled
// or expires.
type Preview struct {
	ID               uuid.UUID  `json:"id"`
	ActorID          uuid.UUID  `json:"actorId"`
	FileName         string     `json:"fileName"`
	ObjectKey        string     `json:"objectKey"`
	Headers          []string   `json:"headers"`
	SampleRows       [][]string `json:"sampleRows"`
	TotalRows        int        `json:"totalRows"`
	Delimiter        string     `json:"delimiter"`
	SuggestedMapping Mapping    `json:"suggestedMapping"`
	CreatedAt        time.Time  `json:"createdAt"`
	ExpiresAt        time.Time  `json:"expiresAt"`
}

// HasHeader reports whether header is one of the preview's headers.
func (p Preview) HasHeader(header string) bool {
	for _, h := range p.Headers {
		if h == header {
			return true
		}
	}
	return false
}
