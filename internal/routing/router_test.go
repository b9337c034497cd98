package routing

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/Ashutoshmitra/job-platform/internal/models"
)

type fakeSink struct {
	published []models.CanonicalJob
	err       error
}

func (s *fakeSink) Publish(_ context.Context, job models.CanonicalJob) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, job)
	return nil
}

type fakeQueue struct {
	entries []models.ReviewQueueEntry
	err     error
}

func (q *fakeQueue) Add(_ context.Context, entry models.ReviewQueueEntry) error {
	if q.err != nil {
		return q.err
	}
	q.entries = append(q.entries, entry)
	return nil
}

func enrichedJob(confidence float64) models.CanonicalJob {
	return models.CanonicalJob{
		ExternalJobID: "REF-1",
		JobSource:     models.JobSourceFeed,
		Title:         "Engineer",
		Enrichment:    &models.Enrichment{ConfidenceScore: confidence},
	}
}

func TestRouteByConfidence(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       Decision
	}{
		{"well above threshold", 0.95, DecisionAutoApproved},
		{"exactly at threshold", 0.86, DecisionAutoApproved},
		{"just below threshold", 0.8599, DecisionManualReview},
		{"well below threshold", 0.5, DecisionManualReview},
		{"zero confidence", 0, DecisionManualReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeSink{}
			queue := &fakeQueue{}
			router := NewRouter(0.86, sink, queue, zap.NewNop())

			decision, err := router.Route(context.Background(), enrichedJob(tt.confidence))
			if err != nil {
				t.Fatalf("Route() error = %v", err)
			}
			if decision != tt.want {
				t.Errorf("Route() = %q, want %q", decision, tt.want)
			}
			if tt.want == DecisionAutoApproved {
				if len(sink.published) != 1 || len(queue.entries) != 0 {
					t.Errorf("published=%d queued=%d, want 1/0", len(sink.published), len(queue.entries))
				}
			} else {
				if len(sink.published) != 0 || len(queue.entries) != 1 {
					t.Errorf("published=%d queued=%d, want 0/1", len(sink.published), len(queue.entries))
				}
			}
		})
	}
}

func TestRouteWithoutEnrichmentGoesToReview(t *testing.T) {
	sink := &fakeSink{}
	queue := &fakeQueue{}
	router := NewRouter(0.86, sink, queue, zap.NewNop())

	job := models.CanonicalJob{ExternalJobID: "REF-1", Title: "Engineer"}
	decision, err := router.Route(context.Background(), job)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if decision != DecisionManualReview {
		t.Errorf("Route() = %q, want manual review", decision)
	}
	if len(queue.entries) != 1 {
		t.Fatalf("queued = %d, want 1", len(queue.entries))
	}
	entry := queue.entries[0]
	if entry.Status != models.ReviewPending {
		t.Errorf("entry status = %q, want pending", entry.Status)
	}
	if entry.Confidence != nil {
		t.Errorf("entry confidence = %v, want nil for unenriched job", *entry.Confidence)
	}
}

func TestRouteReviewEntryCarriesConfidence(t *testing.T) {
	queue := &fakeQueue{}
	router := NewRouter(0.86, &fakeSink{}, queue, zap.NewNop())

	if _, err := router.Route(context.Background(), enrichedJob(0.4)); err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	entry := queue.entries[0]
	if entry.Confidence == nil || *entry.Confidence != 0.4 {
		t.Errorf("entry confidence = %v, want 0.4", entry.Confidence)
	}
	if entry.Enrichment == nil {
		t.Error("entry enrichment missing")
	}
}

func TestRoutePublishFailureKeepsDecision(t *testing.T) {
	sink := &fakeSink{err: fmt.Errorf("nats down")}
	queue := &fakeQueue{}
	router := NewRouter(0.86, sink, queue, zap.NewNop())

	decision, err := router.Route(context.Background(), enrichedJob(0.9))
	if err == nil {
		t.Fatal("Route() error = nil, want publish failure")
	}
	if decision != DecisionAutoApproved {
		t.Errorf("Route() = %q, want auto approved even on publish failure", decision)
	}
	if len(queue.entries) != 0 {
		t.Error("publish failure must not divert the job to review")
	}
}
