package link

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kotche/notes/internal/model"
)

const (
	keyPrefix = "telegram:link:"
	codeLen   = 8
	alphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

type RedisService struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisService(rdb *redis.Client, ttl time.Duration) *RedisService {
	return &RedisService{rdb: rdb, ttl: ttl}
}

func (r *RedisService) Issue(ctx context.Context, userID model.UserID) (string, error) {
	code, err := newCode()
	if err != nil {
		return "", err
	}

	if err = r.rdb.Set(ctx, keyPrefix+code, userID.String(), r.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store link code: %w", err)
	}
	return code, nil
}

// Redeem consumes the code, a second call with the same code fails.
func (r *RedisService) Redeem(ctx context.Context, code string) (model.UserID, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return uuid.Nil, model.ErrLinkCodeNotFound
	}

	value, err := r.rdb.GetDel(ctx, keyPrefix+code).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, model.ErrLinkCodeNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to read link code: %w", err)
	}

	userID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt link code value %q: %w", value, err)
	}
	return userID, nil
}

func newCode() (string, error) {
	buf := make([]byte, codeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate link code: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}
