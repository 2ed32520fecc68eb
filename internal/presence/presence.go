package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Tracker keeps a per-course sorted set of recently-active user IDs, scored
// by last-activity time. Nothing here is persisted in any durable sense:
// entries age out of the window, keys expire, and a Redis restart simply
// empties every room's presence view.
type Tracker struct {
	rdb    *redis.Client
	window time.Duration
}

func NewTracker(rdb *redis.Client, window time.Duration) *Tracker {
	if window <= 0 {
		window = 60 * time.Second
	}
	return &Tracker{rdb: rdb, window: window}
}

func key(courseID uuid.UUID) string {
	return "presence:" + courseID.String()
}

// Touch marks the user active in the course right now. The key's own expiry
// is twice the window so an idle room cleans itself up without a sweeper.
func (t *Tracker) Touch(ctx context.Context, courseID, userID uuid.UUID) error {
	k := key(courseID)
	now := float64(time.Now().UnixMilli())

	pipe := t.rdb.Pipeline()
	pipe.ZAdd(ctx, k, redis.Z{Score: now, Member: userID.String()})
	pipe.Expire(ctx, k, 2*t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence touch: %w", err)
	}
	return nil
}

// Online returns the users active within the window, pruning anything older
// on the way through.
func (t *Tracker) Online(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	k := key(courseID)
	cutoff := time.Now().Add(-t.window).UnixMilli()

	if err := t.rdb.ZRemRangeByScore(ctx, k, "-inf", fmt.Sprintf("(%d", cutoff)).Err(); err != nil {
		return nil, fmt.Errorf("presence prune: %w", err)
	}

	members, err := t.rdb.ZRange(ctx, k, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("presence range: %w", err)
	}

	users := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		users = append(users, id)
	}
	return users, nil
}
