// Package runlock serializes feed runs. Two concurrent runs over the same
// feed/source must not race on closure decisions, so the second acquirer
// fails fast instead of waiting.
package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Ashutoshmitra/job-platform/internal/errors"
	"github.com/Ashutoshmitra/job-platform/internal/models"
)

type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Locker {
	return &Locker{client: client, ttl: ttl}
}

func lockKey(source models.JobSource, feedID *int64) string {
	if feedID == nil {
		return fmt.Sprintf("runlock:%s", source)
	}
	return fmt.Sprintf("runlock:%s:%d", source, *feedID)
}

// Acquire takes the per-feed lock, returning a release func bound to this
// acquisition. The TTL bounds how long a crashed run can block its feed.
func (l *Locker) Acquire(ctx context.Context, source models.JobSource, feedID *int64) (func(context.Context) error, error) {
	key := lockKey(source, feedID)
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.Unavailable("acquire run lock", err)
	}
	if !ok {
		return nil, errors.Conflict(fmt.Sprintf("run already in progress for %s", key), nil)
	}

	release := func(ctx context.Context) error {
		// Only the acquisition holding the token may release; a lock that
		// expired and was re-taken by another run stays untouched.
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			return errors.Unavailable("release run lock", err)
		}
		return nil
	}
	return release, nil
}

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)
