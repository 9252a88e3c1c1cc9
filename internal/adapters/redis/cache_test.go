package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisad "review_sentiment/internal/adapters/redis"
	"review_sentiment/internal/domain"
)

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCache_SetGetDel(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	var got domain.Classification
	ok, err := c.Get(ctx, "clf:abc", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	want := domain.Classification{Sentiment: domain.SentimentPositive, Polarity: 0.75}
	require.NoError(t, c.Set(ctx, "clf:abc", want, 60))
	assert.True(t, mr.Exists("reviews:clf:abc"))

	ok, err = c.Get(ctx, "clf:abc", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, c.Del(ctx, "clf:abc"))
	ok, err = c.Get(ctx, "clf:abc", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_TTLExpires(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 10))
	mr.FastForward(11 * time.Second)

	var s string
	ok, err := c.Get(ctx, "k", &s)
	require.NoError(t, err)
	assert.False(t, ok)
}
