package link

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotche/notes/internal/model"
)

func newService(t *testing.T) (*RedisService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisService(rdb, time.Minute), mr
}

func TestIssueRedeem(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	userID := uuid.New()

	code, err := svc.Issue(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, code, codeLen)

	got, err := svc.Redeem(ctx, " "+code+" ")
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	_, err = svc.Redeem(ctx, code)
	assert.ErrorIs(t, err, model.ErrLinkCodeNotFound)
}

func TestRedeem_Expired(t *testing.T) {
	svc, mr := newService(t)
	ctx := context.Background()

	code, err := svc.Issue(ctx, uuid.New())
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = svc.Redeem(ctx, code)
	assert.ErrorIs(t, err, model.ErrLinkCodeNotFound)
}

func TestRedeem_Empty(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Redeem(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrLinkCodeNotFound)
}
