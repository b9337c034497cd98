package models

import (
	"time"

	"github.com/google/uuid"
)

// RawRecord is one decoded feed entry: an unordered bag of source-specific
// keys. It only lives for the duration of a single run and is never persisted.
type RawRecord map[string]any

type JobSource string

const (
	JobSourceCompanyWebsite JobSource = "COMPANY_WEBSITE"
	JobSourceFeed           JobSource = "JOB_FEED"
)

type JobStatus string

const (
	StatusOpen   JobStatus = "OPEN"
	StatusClosed JobStatus = "CLOSED"
)

// CanonicalJob is the schema-validated representation every downstream
// component works with. ContentHash is derived by the hasher, Enrichment is
// attached after the AI call; both are empty until those stages run.
type CanonicalJob struct {
	ID              string     `json:"id"`
	ExternalJobID   string     `json:"external_job_id"`
	JobSource       JobSource  `json:"job_source"`
	FeedID          *int64     `json:"feed_id,omitempty"`
	CompanyName     string     `json:"company_name"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	PostedAt        time.Time  `json:"posted_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Status          JobStatus  `json:"status"`
	IsRemote        bool       `json:"is_remote"`
	IsMultiLocation bool       `json:"is_multi_location"`
	IsInternational bool       `json:"is_international"`
	ApplicationURL  string     `json:"application_url,omitempty"`
	EmploymentType  string     `json:"employment_type,omitempty"`
	Locations       []string   `json:"locations,omitempty"`
	SalaryMin       *float64   `json:"salary_min,omitempty"`
	SalaryMax       *float64   `json:"salary_max,omitempty"`
	SalaryPeriod    string     `json:"salary_period,omitempty"`
	Currency        string     `json:"currency,omitempty"`
	ContentHash     string     `json:"content_hash,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Enrichment *Enrichment `json:"enrichment,omitempty"`
}

// Key identifies a job within its source.
func (j *CanonicalJob) Key() JobKey {
	return JobKey{ExternalJobID: j.ExternalJobID, JobSource: j.JobSource}
}

// Confidence returns the enrichment confidence score, or false when the job
// has not been enriched.
func (j *CanonicalJob) Confidence() (float64, bool) {
	if j.Enrichment == nil {
		return 0, false
	}
	return j.Enrichment.ConfidenceScore, true
}

// Enrichment holds the AI-assigned attributes for a job.
type Enrichment struct {
	Title           string   `json:"ai_title"`
	Description     string   `json:"ai_description"`
	JobTasks        []string `json:"ai_job_tasks"`
	SearchTerms     []string `json:"ai_search_terms"`
	TopTags         []string `json:"ai_top_tags"`
	JobFunctionID   int      `json:"ai_job_function_id"`
	Skills          []string `json:"ai_skills"`
	ConfidenceScore float64  `json:"ai_confidence_score"`
}

// JobKey is the identity a job carries across runs of the same source.
type JobKey struct {
	ExternalJobID string    `json:"external_job_id"`
	JobSource     JobSource `json:"job_source"`
}

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewResolved ReviewStatus = "resolved"
)

// ReviewQueueEntry wraps a job held for manual review together with the
// enrichment output that put it there.
type ReviewQueueEntry struct {
	Job        CanonicalJob `json:"job"`
	Enrichment *Enrichment  `json:"enrichment,omitempty"`
	Confidence *float64     `json:"confidence,omitempty"`
	Status     ReviewStatus `json:"status"`
	AddedAt    time.Time    `json:"added_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

var jobNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// JobID derives a stable UUID from the source-scoped identity so the same
// posting maps to the same row no matter how often it is re-ingested.
func JobID(source JobSource, externalJobID string) string {
	return uuid.NewSHA1(jobNamespace, []byte(string(source)+"/"+externalJobID)).String()
}
