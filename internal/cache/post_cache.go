package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rajivgeraev/carswipe-api/internal/models"
)

// PostCache кэш объявлений. Get возвращает nil, nil при промахе.
type PostCache interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Set(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RedisPostCache хранит объявления в Redis под ключом "post:<id>"
type RedisPostCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPostCache подключается к Redis и проверяет соединение
func NewRedisPostCache(ctx context.Context, opts *redis.Options, ttl time.Duration) (*RedisPostCache, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisPostCache{client: client, ttl: ttl}, nil
}

func key(id uuid.UUID) string {
	return "post:" + id.String()
}

func (c *RedisPostCache) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	data, err := c.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var post models.Post
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *RedisPostCache) Set(ctx context.Context, post *models.Post) error {
	data, err := json.Marshal(post)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(post.ID), data, c.ttl).Err()
}

func (c *RedisPostCache) Delete(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, key(id)).Err()
}

func (c *RedisPostCache) Close() error {
	return c.client.Close()
}

// Nop кэш-заглушка, когда Redis не настроен
type Nop struct{}

func (Nop) Get(context.Context, uuid.UUID) (*models.Post, error) { return nil, nil }
func (Nop) Set(context.Context, *models.Post) error               { return nil }
func (Nop) Delete(context.Context, uuid.UUID) error               { return nil }
