package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/carswipe-api/internal/models"
)

func TestNopAlwaysMisses(t *testing.T) {
	var c PostCache = Nop{}
	post, err := c.Get(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, post)
}

func TestRedisPostCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" || testing.Short() {
		t.Skip("REDIS_ADDR is not set")
	}

	ctx := context.Background()
	c, err := NewRedisPostCache(ctx, &redis.Options{Addr: addr}, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	post := &models.Post{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Title:  "Audi A4",
		Price:  decimal.RequireFromString("18500.50"),
		Status: models.PostStatusActive,
	}

	miss, err := c.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, c.Set(ctx, post))
	hit, err := c.Get(ctx, post.ID)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, post.Title, hit.Title)
	assert.True(t, post.Price.Equal(hit.Price))

	require.NoError(t, c.Delete(ctx, post.ID))
	miss, err = c.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, miss)
}
