package schema

import (
	"errors"
	"testing"
	"time"

	"github.com/Ashutoshmitra/job-platform/internal/models"
)

func validRecord() map[string]any {
	return map[string]any{
		"external_job_id": "REF-1",
		"job_source":      "JOB_FEED",
		"feed_id":         int64(7),
		"company_name":    "Acme Corp",
		"title":           "Software Engineer",
		"description":     "Build things.",
		"posted_at":       "2025-03-01T10:00:00Z",
	}
}

func TestValidateMinimalRecord(t *testing.T) {
	job, err := Validate(validRecord())
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if job.ExternalJobID != "REF-1" {
		t.Errorf("ExternalJobID = %q", job.ExternalJobID)
	}
	if job.JobSource != models.JobSourceFeed {
		t.Errorf("JobSource = %q", job.JobSource)
	}
	if job.FeedID == nil || *job.FeedID != 7 {
		t.Errorf("FeedID = %v, want 7", job.FeedID)
	}
	if job.Status != models.StatusOpen {
		t.Errorf("Status = %q, want OPEN", job.Status)
	}
	want := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if !job.PostedAt.Equal(want) {
		t.Errorf("PostedAt = %v, want %v", job.PostedAt, want)
	}
	if job.ID == "" {
		t.Error("ID not derived")
	}
}

func TestValidateIDStableAcrossRuns(t *testing.T) {
	a, err := Validate(validRecord())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Validate(validRecord())
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID {
		t.Errorf("ID not stable: %q vs %q", a.ID, b.ID)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	for _, field := range []string{"external_job_id", "job_source", "company_name", "title", "description", "posted_at"} {
		t.Run(field, func(t *testing.T) {
			rec := validRecord()
			delete(rec, field)
			_, err := Validate(rec)
			var vf *ValidationFailure
			if !errors.As(err, &vf) {
				t.Fatalf("Validate() error = %v, want ValidationFailure", err)
			}
			if vf.Field != field {
				t.Errorf("failed field = %q, want %q", vf.Field, field)
			}
		})
	}
}

func TestValidateFeedIDRules(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		feedID    any
		wantField string
	}{
		{"feed source requires feed_id", "JOB_FEED", nil, "feed_id"},
		{"website source rejects feed_id", "COMPANY_WEBSITE", int64(3), "feed_id"},
		{"website source without feed_id ok", "COMPANY_WEBSITE", nil, ""},
		{"feed source with feed_id ok", "JOB_FEED", int64(3), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			rec["job_source"] = tt.source
			delete(rec, "feed_id")
			if tt.feedID != nil {
				rec["feed_id"] = tt.feedID
			}
			_, err := Validate(rec)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			var vf *ValidationFailure
			if !errors.As(err, &vf) || vf.Field != tt.wantField {
				t.Fatalf("Validate() error = %v, want failure on %q", err, tt.wantField)
			}
		})
	}
}

func TestValidateCoercions(t *testing.T) {
	rec := validRecord()
	rec["is_remote"] = "yes"
	rec["salary_min"] = "50000"
	rec["salary_max"] = 90000
	rec["locations"] = []any{"Berlin", " Munich ", ""}
	rec["employment_type"] = "Full Time"
	rec["feed_id"] = "7"

	job, err := Validate(rec)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !job.IsRemote {
		t.Error("is_remote not coerced from yes")
	}
	if job.SalaryMin == nil || *job.SalaryMin != 50000 {
		t.Errorf("SalaryMin = %v", job.SalaryMin)
	}
	if job.SalaryMax == nil || *job.SalaryMax != 90000 {
		t.Errorf("SalaryMax = %v", job.SalaryMax)
	}
	if len(job.Locations) != 2 || job.Locations[0] != "Berlin" || job.Locations[1] != "Munich" {
		t.Errorf("Locations = %v", job.Locations)
	}
	if job.EmploymentType != "full_time" {
		t.Errorf("EmploymentType = %q, want full_time", job.EmploymentType)
	}
	if job.FeedID == nil || *job.FeedID != 7 {
		t.Errorf("FeedID = %v", job.FeedID)
	}
}

func TestValidateDateLayouts(t *testing.T) {
	for _, raw := range []string{
		"2025-03-01T10:00:00Z",
		"2025-03-01T10:00:00",
		"2025-03-01 10:00:00",
		"2025-03-01",
	} {
		t.Run(raw, func(t *testing.T) {
			rec := validRecord()
			rec["posted_at"] = raw
			if _, err := Validate(rec); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value any
	}{
		{"garbage timestamp", "posted_at", "not a date"},
		{"unknown source", "job_source", "LINKEDIN"},
		{"non numeric salary", "salary_min", "lots"},
		{"bad boolean", "is_remote", "maybe"},
		{"unknown status", "status", "PAUSED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			rec[tt.field] = tt.value
			_, err := Validate(rec)
			var vf *ValidationFailure
			if !errors.As(err, &vf) {
				t.Fatalf("Validate() error = %v, want ValidationFailure", err)
			}
			if vf.Field != tt.field {
				t.Errorf("failed field = %q, want %q", vf.Field, tt.field)
			}
		})
	}
}

func TestValidateSalaryOrdering(t *testing.T) {
	rec := validRecord()
	rec["salary_min"] = 90000
	rec["salary_max"] = 50000
	_, err := Validate(rec)
	var vf *ValidationFailure
	if !errors.As(err, &vf) {
		t.Fatalf("Validate() error = %v, want ValidationFailure", err)
	}
}

func TestValidateNumericExternalID(t *testing.T) {
	// JSON decoders deliver numbers as float64.
	rec := validRecord()
	rec["external_job_id"] = float64(12345)
	job, err := Validate(rec)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if job.ExternalJobID != "12345" {
		t.Errorf("ExternalJobID = %q, want 12345", job.ExternalJobID)
	}
}

func TestValidateStatusClosed(t *testing.T) {
	rec := validRecord()
	rec["status"] = "closed"
	job, err := Validate(rec)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if job.Status != models.StatusClosed {
		t.Errorf("Status = %q, want CLOSED", job.Status)
	}
}

func TestNormalizeEmploymentTypePassthrough(t *testing.T) {
	if got := normalizeEmploymentType("apprenticeship"); got != "apprenticeship" {
		t.Errorf("normalizeEmploymentType = %q", got)
	}
}
