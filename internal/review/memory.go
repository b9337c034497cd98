package review

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Ashutoshmitra/job-platform/internal/errors"
	"github.com/Ashutoshmitra/job-platform/internal/models"
)

// MemoryStore is an in-process review queue used by tests and local runs
// without Postgres. Same contract as PostgresStore.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[models.JobKey]models.ReviewQueueEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[models.JobKey]models.ReviewQueueEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Add(_ context.Context, entry models.ReviewQueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entry.Job.Key()
	now := s.now()
	if existing, ok := s.entries[key]; ok {
		entry.AddedAt = existing.AddedAt
	} else {
		entry.AddedAt = now
	}
	entry.UpdatedAt = now
	entry.Status = models.ReviewPending
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) List(_ context.Context, status *models.ReviewStatus) ([]models.ReviewQueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ReviewQueueEntry
	for _, entry := range s.entries {
		if status != nil {
			if entry.Status != *status {
				continue
			}
		} else if entry.Status == models.ReviewResolved {
			// Resolved entries leave the default listing but stay stored;
			// ask for them explicitly to see the audit trail.
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.Before(out[j].AddedAt)
		}
		return out[i].Job.ExternalJobID < out[j].Job.ExternalJobID
	})
	return out, nil
}

func (s *MemoryStore) Resolve(_ context.Context, key models.JobKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return errors.NotFound("review entry not found", nil)
	}
	entry.Status = models.ReviewResolved
	entry.UpdatedAt = s.now()
	s.entries[key] = entry
	return nil
}
