package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kotche/notes/internal/model"
)

const claimTTL = 24 * time.Hour

// RedisClaimer lets the first scheduler to SETNX a note deliver it.
type RedisClaimer struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisClaimer(rdb *redis.Client) *RedisClaimer {
	return &RedisClaimer{rdb: rdb, prefix: "reminder:claim:"}
}

func (r *RedisClaimer) Claim(ctx context.Context, noteID model.NoteID) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, r.key(noteID), time.Now().UTC().Format(time.RFC3339), claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim note %d: %w", noteID, err)
	}
	return ok, nil
}

func (r *RedisClaimer) Release(ctx context.Context, noteID model.NoteID) error {
	if err := r.rdb.Del(ctx, r.key(noteID)).Err(); err != nil {
		return fmt.Errorf("failed to release note %d: %w", noteID, err)
	}
	return nil
}

func (r *RedisClaimer) key(noteID model.NoteID) string {
	return fmt.Sprintf("%s%d", r.prefix, noteID)
}
