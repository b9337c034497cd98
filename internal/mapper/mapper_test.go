package mapper

import (
	"reflect"
	"testing"

	"github.com/Ashutoshmitra/job-platform/internal/models"
)

func TestMapSynonyms(t *testing.T) {
	tests := []struct {
		name string
		rec  models.RawRecord
		want map[string]any
	}{
		{
			name: "common feed keys",
			rec: models.RawRecord{
				"jobtitle":        "Software Engineer",
				"company":         "Acme Corp",
				"body":            "Build things.",
				"referencenumber": "REF-1",
				"date":            "2025-03-01",
				"applylink":       "https://acme.example/apply",
				"job-type":        "Full Time",
			},
			want: map[string]any{
				"title":           "Software Engineer",
				"company_name":    "Acme Corp",
				"description":     "Build things.",
				"external_job_id": "REF-1",
				"posted_at":       "2025-03-01",
				"application_url": "https://acme.example/apply",
				"employment_type": "Full Time",
			},
		},
		{
			name: "canonical keys pass through",
			rec: models.RawRecord{
				"title":             "Engineer",
				"company_name":      "Acme",
				"description":       "desc",
				"external_job_id":   "1",
				"posted_at":         "2025-01-01",
				"is_multi_location": true,
				"salary_min":        50000,
			},
			want: map[string]any{
				"title":             "Engineer",
				"company_name":      "Acme",
				"description":       "desc",
				"external_job_id":   "1",
				"posted_at":         "2025-01-01",
				"is_multi_location": true,
				"salary_min":        50000,
			},
		},
		{
			name: "unknown keys dropped",
			rec: models.RawRecord{
				"title":          "Engineer",
				"internal_notes": "do not ship",
				"tracking_pixel": "xyz",
			},
			want: map[string]any{
				"title": "Engineer",
			},
		},
		{
			name: "keys are case insensitive",
			rec: models.RawRecord{
				"JobTitle": "Engineer",
				"COMPANY":  "Acme",
			},
			want: map[string]any{
				"title":        "Engineer",
				"company_name": "Acme",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Map(tt.rec)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Map() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapConflictTableOrderWins(t *testing.T) {
	// Both keys map to external_job_id; external_job_id is declared later in
	// the table so it wins regardless of map iteration order.
	rec := models.RawRecord{
		"id":              "from-id",
		"external_job_id": "from-canonical",
	}
	got := Map(rec)
	if got["external_job_id"] != "from-canonical" {
		t.Errorf("external_job_id = %v, want from-canonical", got["external_job_id"])
	}
}

func TestMapDeterministic(t *testing.T) {
	rec := models.RawRecord{
		"jobid":  "a",
		"job_id": "b",
		"ref_id": "c",
	}
	first := Map(rec)
	for i := 0; i < 50; i++ {
		if got := Map(rec); !reflect.DeepEqual(got, first) {
			t.Fatalf("Map() not deterministic: run %d got %v, first run %v", i, got, first)
		}
	}
}

func TestMapEmptyRecord(t *testing.T) {
	got := Map(models.RawRecord{})
	if len(got) != 0 {
		t.Errorf("Map(empty) = %v, want empty", got)
	}
}
