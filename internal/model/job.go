package model

import (
	"context"
	"iter"
	"time"
)

// EmploymentType is the closed vocabulary for how a role is staffed.
type EmploymentType string

const (
	FullTime   EmploymentType = "FULL_TIME"
	PartTime   EmploymentType = "PART_TIME"
	Contract   EmploymentType = "CONTRACT"
	Internship EmploymentType = "INTERNSHIP"
	Temporary  EmploymentType = "TEMPORARY"
	Freelance  EmploymentType = "FREELANCE"
)

// Source is the closed vocabulary for where a posting was found.
type Source string

const (
	SourceLinkedIn       Source = "LINKEDIN"
	SourceIndeed         Source = "INDEED"
	SourceGlassdoor      Source = "GLASSDOOR"
	SourceCompanyWebsite Source = "COMPANY_WEBSITE"
	SourceOther          Source = "OTHER"
)

// RawPosting is a job listing as a collector produced it. Any field may be
// empty; nothing here is trusted until canonicalized.
type RawPosting struct {
	SourceID       string     `json:"id"`
	Title          string     `json:"title"`
	Company        string     `json:"company"`
	Location       string     `json:"location"`
	Department     string     `json:"department"`
	Description    string     `json:"description"`
	EmploymentType string     `json:"job_type"`
	Source         string     `json:"source"`
	ApplyURL       string     `json:"apply_url"`
	SalaryMin      *float64   `json:"salary_min"`
	SalaryMax      *float64   `json:"salary_max"`
	PostedAt       *time.Time `json:"date_posted"`
}

// CanonicalJob is the normalized, storage-ready form of a posting.
type CanonicalJob struct {
	IdentityKey    string         `json:"identity_key" validate:"required"`
	Company        string         `json:"company" validate:"required"`
	Title          string         `json:"title" validate:"required"`
	Location       *string        `json:"location,omitempty"`
	Department     *string        `json:"department,omitempty"`
	EmploymentType EmploymentType `json:"employment_type" validate:"oneof=FULL_TIME PART_TIME CONTRACT INTERNSHIP TEMPORARY FREELANCE"`
	Description    *string        `json:"description,omitempty"`
	ApplyURL       string         `json:"apply_url" validate:"omitempty,url"`
	PostedAt       *time.Time     `json:"posted_at,omitempty"`
	Source         Source         `json:"source" validate:"oneof=LINKEDIN INDEED GLASSDOOR COMPANY_WEBSITE OTHER"`
	IsRemote       bool           `json:"is_remote"`
	IsActive       bool           `json:"is_active"`
	Skills         []string       `json:"skills"`
	SalaryMin      float64        `json:"salary_min" validate:"gte=0"`
	SalaryMax      float64        `json:"salary_max" validate:"gte=0"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// RecordFailure is a single job that could not be written.
type RecordFailure struct {
	IdentityKey string
	Err         error
}

// UpsertResult summarizes one batch applied to storage.
type UpsertResult struct {
	Inserted     int
	Updated      int
	Failures     []RecordFailure
	InsertedJobs []CanonicalJob
}

// Collector produces raw postings from one source. The sequence is lazy; a
// yielded *PageError marks a page that could not be read and the caller may
// keep iterating. Any other yielded error ends the collection.
type Collector interface {
	Name() string
	Collect(ctx context.Context, cursor string) iter.Seq2[RawPosting, error]
}

// JobStore persists canonical jobs keyed by identity.
type JobStore interface {
	// UpsertJobs inserts unseen identity keys and refreshes the display
	// fields of known ones. A returned error means the batch as a whole
	// could not be applied; per-record problems land in UpsertResult.Failures.
	UpsertJobs(ctx context.Context, jobs []CanonicalJob, now time.Time) (UpsertResult, error)
	GetJob(ctx context.Context, identityKey string) (CanonicalJob, error)
	DeactivateStale(ctx context.Context, before time.Time) (int64, error)
}

// RunLedger is the append-only history of sync runs.
type RunLedger interface {
	StartRun(ctx context.Context, pipeline string, start time.Time) (int64, error)
	FinishRun(ctx context.Context, run SyncRun) error
	LastCursor(ctx context.Context, pipeline string) (string, error)
	ListRuns(ctx context.Context, pipeline string, limit int) ([]SyncRun, error)
	AbandonStale(ctx context.Context, before time.Time, message string) (int64, error)
}

// EmailLog records which jobs were sent to which users, at most once per pair.
type EmailLog interface {
	RecordEmail(ctx context.Context, userID, jobID string, sentAt time.Time) (bool, error)
	HasEmailed(ctx context.Context, userID, jobID string) (bool, error)
}

// JobPublisher announces newly inserted jobs to downstream consumers.
type JobPublisher interface {
	PublishJobs(ctx context.Context, jobs []CanonicalJob) error
}

// RunNotifier reports the outcome of a finished sync run.
type RunNotifier interface {
	NotifyRun(ctx context.Context, run SyncRun) error
}

// JobFilter decides whether a raw posting is worth ingesting.
type JobFilter interface {
	Match(p RawPosting) bool
}
