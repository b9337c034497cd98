package store

import (
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/Ashutoshmitra/job-platform/internal/models"
)

var placeholder = regexp.MustCompile(`\$(\d+)`)

func maxPlaceholder(t *testing.T, sql string) int {
	t.Helper()
	max := 0
	for _, m := range placeholder.FindAllStringSubmatch(sql, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			t.Fatalf("bad placeholder %q", m[0])
		}
		if n > max {
			max = n
		}
	}
	return max
}

func TestUpsertArgsMatchPlaceholders(t *testing.T) {
	args := upsertArgs(models.CanonicalJob{}, nil, time.Now(), time.Now())
	if got, want := len(args), maxPlaceholder(t, upsertSQL); got != want {
		t.Errorf("upsertArgs binds %d values, statement expects %d", got, want)
	}
}

func TestUpsertArgsTimestampsIndependent(t *testing.T) {
	createdAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	args := upsertArgs(models.CanonicalJob{}, nil, createdAt, now)

	// created_at and updated_at are the last two columns; a re-ingest must
	// keep the original created_at while stamping updated_at with now.
	gotCreated, ok := args[len(args)-2].(time.Time)
	if !ok || !gotCreated.Equal(createdAt) {
		t.Errorf("created_at bound to %v, want %v", args[len(args)-2], createdAt)
	}
	gotUpdated, ok := args[len(args)-1].(time.Time)
	if !ok || !gotUpdated.Equal(now) {
		t.Errorf("updated_at bound to %v, want %v", args[len(args)-1], now)
	}
}
