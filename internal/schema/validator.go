// Package schema validates mapped records against the canonical job schema.
// Validation is total: every record yields either a CanonicalJob or a typed
// ValidationFailure, never a panic and never a silent drop.
package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Ashutoshmitra/job-platform/internal/models"
)

// ValidationFailure reports which field failed and why. It is recoverable:
// the record is excluded from the batch and surfaced in the run report.
type ValidationFailure struct {
	Field  string
	Reason string
}

func (f *ValidationFailure) Error() string {
	return fmt.Sprintf("field %q: %s", f.Field, f.Reason)
}

func fail(field, format string, args ...any) *ValidationFailure {
	return &ValidationFailure{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// employmentTypes maps known aliases onto the controlled vocabulary. Values
// that match no alias pass through unchanged.
var employmentTypes = map[string]string{
	"full_time":  "full_time",
	"full-time":  "full_time",
	"fulltime":   "full_time",
	"ft":         "full_time",
	"permanent":  "full_time",
	"part_time":  "part_time",
	"part-time":  "part_time",
	"parttime":   "part_time",
	"pt":         "part_time",
	"contract":   "contract",
	"contractor": "contract",
	"freelance":  "contract",
	"temporary":  "temporary",
	"temp":       "temporary",
	"internship": "internship",
	"intern":     "internship",
}

// timeLayouts are tried in order when coercing a string timestamp.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Validate checks a mapped record against the canonical schema, coercing
// common string forms of timestamps, booleans and numbers. The returned error
// is always a *ValidationFailure.
func Validate(rec map[string]any) (models.CanonicalJob, error) {
	var job models.CanonicalJob

	externalID, err := requiredString(rec, "external_job_id")
	if err != nil {
		return job, err
	}
	job.ExternalJobID = externalID

	source, err := requiredString(rec, "job_source")
	if err != nil {
		return job, err
	}
	switch models.JobSource(strings.ToUpper(source)) {
	case models.JobSourceCompanyWebsite:
		job.JobSource = models.JobSourceCompanyWebsite
	case models.JobSourceFeed:
		job.JobSource = models.JobSourceFeed
	default:
		return job, fail("job_source", "value %q not in [COMPANY_WEBSITE JOB_FEED]", source)
	}

	if raw, ok := present(rec, "feed_id"); ok {
		id, err := coerceInt64(raw)
		if err != nil {
			return job, fail("feed_id", "not an integer: %v", raw)
		}
		job.FeedID = &id
	}
	// feed_id is the feed's registration row; it only makes sense for feed
	// ingests and must stay null for direct company-website postings.
	if job.JobSource == models.JobSourceFeed && job.FeedID == nil {
		return job, fail("feed_id", "required when job_source is JOB_FEED")
	}
	if job.JobSource == models.JobSourceCompanyWebsite && job.FeedID != nil {
		return job, fail("feed_id", "must be null when job_source is COMPANY_WEBSITE")
	}

	for _, f := range []struct {
		field string
		dst   *string
	}{
		{"company_name", &job.CompanyName},
		{"title", &job.Title},
		{"description", &job.Description},
	} {
		v, err := requiredString(rec, f.field)
		if err != nil {
			return job, err
		}
		*f.dst = v
	}

	postedAt, err := requiredTime(rec, "posted_at")
	if err != nil {
		return job, err
	}
	job.PostedAt = postedAt

	if raw, ok := present(rec, "expires_at"); ok {
		t, err := coerceTime(raw)
		if err != nil {
			return job, fail("expires_at", "not a valid timestamp: %v", raw)
		}
		job.ExpiresAt = &t
	}

	job.Status = models.StatusOpen
	if raw, ok := present(rec, "status"); ok {
		s, isStr := raw.(string)
		if !isStr {
			return job, fail("status", "not a string: %v", raw)
		}
		switch models.JobStatus(strings.ToUpper(strings.TrimSpace(s))) {
		case models.StatusOpen:
			job.Status = models.StatusOpen
		case models.StatusClosed:
			job.Status = models.StatusClosed
		default:
			return job, fail("status", "value %q not in [OPEN CLOSED]", s)
		}
	}

	for _, f := range []struct {
		field string
		dst   *bool
	}{
		{"is_remote", &job.IsRemote},
		{"is_multi_location", &job.IsMultiLocation},
		{"is_international", &job.IsInternational},
	} {
		if raw, ok := present(rec, f.field); ok {
			b, err := coerceBool(raw)
			if err != nil {
				return job, fail(f.field, "not a boolean: %v", raw)
			}
			*f.dst = b
		}
	}

	if raw, ok := present(rec, "application_url"); ok {
		s, isStr := raw.(string)
		if !isStr {
			return job, fail("application_url", "not a string: %v", raw)
		}
		job.ApplicationURL = strings.TrimSpace(s)
	}

	if raw, ok := present(rec, "employment_type"); ok {
		s, isStr := raw.(string)
		if !isStr {
			return job, fail("employment_type", "not a string: %v", raw)
		}
		job.EmploymentType = normalizeEmploymentType(s)
	}

	if raw, ok := present(rec, "locations"); ok {
		locs, err := coerceLocations(raw)
		if err != nil {
			return job, fail("locations", "not a string or list of strings: %v", raw)
		}
		job.Locations = locs
	}

	for _, f := range []struct {
		field string
		dst   **float64
	}{
		{"salary_min", &job.SalaryMin},
		{"salary_max", &job.SalaryMax},
	} {
		if raw, ok := present(rec, f.field); ok {
			v, err := coerceFloat(raw)
			if err != nil {
				return job, fail(f.field, "not numeric: %v", raw)
			}
			*f.dst = &v
		}
	}
	if job.SalaryMin != nil && job.SalaryMax != nil && *job.SalaryMin > *job.SalaryMax {
		return job, fail("salary_min", "salary_min %v exceeds salary_max %v", *job.SalaryMin, *job.SalaryMax)
	}

	for _, f := range []struct {
		field string
		dst   *string
	}{
		{"salary_period", &job.SalaryPeriod},
		{"currency", &job.Currency},
	} {
		if raw, ok := present(rec, f.field); ok {
			s, isStr := raw.(string)
			if !isStr {
				return job, fail(f.field, "not a string: %v", raw)
			}
			*f.dst = strings.TrimSpace(s)
		}
	}

	job.ID = models.JobID(job.JobSource, job.ExternalJobID)
	return job, nil
}

func normalizeEmploymentType(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, " ", "_")
	if canonical, ok := employmentTypes[key]; ok {
		return canonical
	}
	return strings.TrimSpace(s)
}

func present(rec map[string]any, field string) (any, bool) {
	v, ok := rec[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func requiredString(rec map[string]any, field string) (string, *ValidationFailure) {
	raw, ok := present(rec, field)
	if !ok {
		return "", fail(field, "required field missing")
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case float64:
		// JSON decoders hand numeric ids over as float64.
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	default:
		return "", fail(field, "not a string: %v", raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fail(field, "empty after trimming")
	}
	return s, nil
}

func requiredTime(rec map[string]any, field string) (time.Time, *ValidationFailure) {
	raw, ok := present(rec, field)
	if !ok {
		return time.Time{}, fail(field, "required field missing")
	}
	t, err := coerceTime(raw)
	if err != nil {
		return time.Time{}, fail(field, "not a valid timestamp: %v", raw)
	}
	return t, nil
}

func coerceTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", raw)
	}
}

func coerceBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true, nil
		case "false", "no", "0", "":
			return false, nil
		}
		return false, fmt.Errorf("unrecognized boolean literal %q", v)
	case float64:
		return v != 0, nil
	case int:
		return v != 0, nil
	default:
		return false, fmt.Errorf("unsupported boolean type %T", raw)
	}
}

func coerceFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", raw)
	}
}

func coerceInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported integer type %T", raw)
	}
}

func coerceLocations(raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		return []string{s}, nil
	case []string:
		out := make([]string, 0, len(v))
		for _, loc := range v {
			if trimmed := strings.TrimSpace(loc); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("non-string location %v", item)
			}
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported locations type %T", raw)
	}
}
