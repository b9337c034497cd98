package models

import "time"

// RunRequest is one feed run: the current snapshot of raw records for a
// single (feed, source) pair, as produced by the format decoders upstream.
type RunRequest struct {
	FeedID    *int64      `json:"feed_id,omitempty"`
	JobSource JobSource   `json:"job_source"`
	Records   []RawRecord `json:"records"`
}

// RecordError captures a per-record failure without aborting the run.
type RecordError struct {
	Index  int    `json:"index"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

// RunReport aggregates the outcome of one feed run for the caller.
type RunReport struct {
	RunID          string        `json:"run_id"`
	FeedID         *int64        `json:"feed_id,omitempty"`
	JobSource      JobSource     `json:"job_source"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Processed      int           `json:"jobs_processed"`
	Inserted       int           `json:"jobs_inserted"`
	Skipped        int           `json:"jobs_skipped"`
	Closed         int           `json:"jobs_closed"`
	AutoApproved   int           `json:"jobs_auto_approved"`
	ManualReview   int           `json:"jobs_manual_review"`
	Errors         []RecordError `json:"errors,omitempty"`
}
