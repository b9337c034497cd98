// Package mapper translates source-specific record keys into the canonical
// schema. Heterogeneous feeds name the same field dozens of ways; the synonym
// table below collects the ones we have seen in production. Unknown keys are
// dropped on purpose: they are noise from the source, not validation targets.
package mapper

import (
	"sort"
	"strings"

	"github.com/Ashutoshmitra/job-platform/internal/models"
)

type synonym struct {
	source    string
	canonical string
}

// Declared order is the tie-break: when two source keys map to the same
// canonical field within one record, the later table entry wins.
var synonyms = []synonym{
	// company name
	{"company", "company_name"},
	{"company_name", "company_name"},
	{"companyname", "company_name"},
	{"hiring_organization", "company_name"},
	{"hiringorganization", "company_name"},
	{"employer", "company_name"},

	// description
	{"body", "description"},
	{"description", "description"},
	{"jobdescription", "description"},
	{"job_description", "description"},
	{"full_description", "description"},
	{"details", "description"},
	{"job_details", "description"},

	// posting date
	{"posted", "posted_at"},
	{"date", "posted_at"},
	{"posted_at", "posted_at"},
	{"dateposted", "posted_at"},
	{"date_posted", "posted_at"},
	{"publication_date", "posted_at"},
	{"post_date", "posted_at"},

	// application URL
	{"url", "application_url"},
	{"job_url", "application_url"},
	{"applylink", "application_url"},
	{"application_link", "application_url"},
	{"apply_url", "application_url"},
	{"link", "application_url"},
	{"application_url", "application_url"},

	// title
	{"title", "title"},
	{"jobtitle", "title"},
	{"job_title", "title"},
	{"position_title", "title"},
	{"position", "title"},
	{"role", "title"},

	// locations
	{"location", "locations"},
	{"locations", "locations"},
	{"joblocations", "locations"},
	{"job_location", "locations"},
	{"address", "locations"},
	{"work_location", "locations"},
	{"city_state", "locations"},
	{"city", "locations"},
	{"state", "locations"},
	{"country", "locations"},

	// employment type
	{"job-type", "employment_type"},
	{"job_type", "employment_type"},
	{"jobtype", "employment_type"},
	{"type", "employment_type"},
	{"position_type", "employment_type"},
	{"contract_type", "employment_type"},
	{"employmenttype", "employment_type"},
	{"employment_type", "employment_type"},

	// external id
	{"id", "external_job_id"},
	{"referencenumber", "external_job_id"},
	{"ref_id", "external_job_id"},
	{"jobid", "external_job_id"},
	{"job_id", "external_job_id"},
	{"reference_id", "external_job_id"},
	{"requisition_id", "external_job_id"},
	{"job_reference", "external_job_id"},
	{"external_job_id", "external_job_id"},

	// remote flag
	{"remote", "is_remote"},
	{"is_remote", "is_remote"},
	{"isremote", "is_remote"},

	// salary
	{"salary_min", "salary_min"},
	{"min_salary", "salary_min"},
	{"minimum_salary", "salary_min"},
	{"salary_from", "salary_min"},
	{"salary_max", "salary_max"},
	{"max_salary", "salary_max"},
	{"maximum_salary", "salary_max"},
	{"salary_to", "salary_max"},
	{"salary_period", "salary_period"},
	{"salary_frequency", "salary_period"},
	{"pay_period", "salary_period"},
	{"currency", "currency"},
	{"salary_currency", "currency"},

	// expiry
	{"expires_at", "expires_at"},
	{"expiry_date", "expires_at"},
	{"valid_through", "expires_at"},
}

// canonicalFields are the schema keys a raw record may carry verbatim; they
// pass through even without a synonym entry.
var canonicalFields = map[string]struct{}{
	"external_job_id":   {},
	"job_source":        {},
	"feed_id":           {},
	"posted_at":         {},
	"expires_at":        {},
	"status":            {},
	"company_name":      {},
	"title":             {},
	"description":       {},
	"application_url":   {},
	"employment_type":   {},
	"is_remote":         {},
	"is_multi_location": {},
	"is_international":  {},
	"locations":         {},
	"salary_min":        {},
	"salary_max":        {},
	"salary_period":     {},
	"currency":          {},
}

// Map rewrites a raw record onto canonical keys. Values are carried over
// unconverted; type coercion happens in the validator. Map never fails —
// missing required fields are detected downstream.
func Map(rec models.RawRecord) map[string]any {
	lowered := make(map[string]any, len(rec))
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	// Sorted so that record keys differing only in case resolve the same way
	// on every run.
	sort.Strings(keys)
	for _, k := range keys {
		lowered[strings.ToLower(strings.TrimSpace(k))] = rec[k]
	}

	out := make(map[string]any)
	for k, v := range lowered {
		if _, ok := canonicalFields[k]; ok {
			out[k] = v
		}
	}
	for _, s := range synonyms {
		if v, ok := lowered[s.source]; ok {
			out[s.canonical] = v
		}
	}
	return out
}
