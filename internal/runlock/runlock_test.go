package runlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/Ashutoshmitra/job-platform/internal/errors"
	"github.com/Ashutoshmitra/job-platform/internal/models"
)

func setupLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return New(client, time.Minute), mr
}

func feedID(v int64) *int64 { return &v }

func TestAcquireAndRelease(t *testing.T) {
	ctx := context.Background()
	locker, mr := setupLocker(t)

	release, err := locker.Acquire(ctx, models.JobSourceFeed, feedID(7))
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !mr.Exists("runlock:JOB_FEED:7") {
		t.Error("lock key not set")
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release error = %v", err)
	}
	if mr.Exists("runlock:JOB_FEED:7") {
		t.Error("lock key still present after release")
	}
}

func TestAcquireConflict(t *testing.T) {
	ctx := context.Background()
	locker, _ := setupLocker(t)

	release, err := locker.Acquire(ctx, models.JobSourceFeed, feedID(7))
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer release(ctx)

	_, err = locker.Acquire(ctx, models.JobSourceFeed, feedID(7))
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Type != apperrors.ErrTypeConflict {
		t.Errorf("second Acquire() error = %v, want CONFLICT", err)
	}
}

func TestAcquireDifferentFeedsIndependent(t *testing.T) {
	ctx := context.Background()
	locker, _ := setupLocker(t)

	releaseA, err := locker.Acquire(ctx, models.JobSourceFeed, feedID(1))
	if err != nil {
		t.Fatalf("Acquire(feed 1) error = %v", err)
	}
	defer releaseA(ctx)

	releaseB, err := locker.Acquire(ctx, models.JobSourceFeed, feedID(2))
	if err != nil {
		t.Fatalf("Acquire(feed 2) error = %v", err)
	}
	defer releaseB(ctx)

	releaseC, err := locker.Acquire(ctx, models.JobSourceCompanyWebsite, nil)
	if err != nil {
		t.Fatalf("Acquire(website) error = %v", err)
	}
	defer releaseC(ctx)
}

func TestLockExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	locker, mr := setupLocker(t)

	if _, err := locker.Acquire(ctx, models.JobSourceFeed, feedID(7)); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)

	release, err := locker.Acquire(ctx, models.JobSourceFeed, feedID(7))
	if err != nil {
		t.Fatalf("Acquire() after expiry error = %v", err)
	}
	defer release(ctx)
}

func TestStaleReleaseDoesNotDropNewLock(t *testing.T) {
	ctx := context.Background()
	locker, mr := setupLocker(t)

	staleRelease, err := locker.Acquire(ctx, models.JobSourceFeed, feedID(7))
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)

	freshRelease, err := locker.Acquire(ctx, models.JobSourceFeed, feedID(7))
	if err != nil {
		t.Fatalf("re-Acquire() error = %v", err)
	}
	defer freshRelease(ctx)

	// The expired holder releasing must not delete the new holder's lock.
	if err := staleRelease(ctx); err != nil {
		t.Fatalf("stale release error = %v", err)
	}
	if !mr.Exists("runlock:JOB_FEED:7") {
		t.Error("stale release dropped the fresh lock")
	}
}

func TestLockKeyFormat(t *testing.T) {
	tests := []struct {
		source models.JobSource
		feedID *int64
		want   string
	}{
		{models.JobSourceFeed, feedID(42), "runlock:JOB_FEED:42"},
		{models.JobSourceCompanyWebsite, nil, "runlock:COMPANY_WEBSITE"},
	}
	for _, tt := range tests {
		if got := lockKey(tt.source, tt.feedID); got != tt.want {
			t.Errorf("lockKey(%s, %v) = %q, want %q", tt.source, tt.feedID, got, tt.want)
		}
	}
}
