// Package cache holds read-through caches for public endpoints.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"food-marketplace-api/models"

	"github.com/redis/go-redis/v9"
)

// MenuCache stores a restaurant's full menu as served by the public menu endpoint.
type MenuCache interface {
	Get(ctx context.Context, restaurantID uint) (*models.Menu, bool, error)
	Set(ctx context.Context, restaurantID uint, menu *models.Menu) error
	Invalidate(ctx context.Context, restaurantID uint) error
}

func menuKey(restaurantID uint) string {
	return fmt.Sprintf("menu:%d", restaurantID)
}

type RedisMenuCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMenuCache(client *redis.Client, ttl time.Duration) *RedisMenuCache {
	return &RedisMenuCache{client: client, ttl: ttl}
}

// NewRedisClient builds a client for addr; it does not dial until first use.
func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

func (c *RedisMenuCache) Get(ctx context.Context, restaurantID uint) (*models.Menu, bool, error) {
	raw, err := c.client.Get(ctx, menuKey(restaurantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var menu models.Menu
	if err := json.Unmarshal(raw, &menu); err != nil {
		return nil, false, fmt.Errorf("decode cached menu %d: %w", restaurantID, err)
	}
	return &menu, true, nil
}

func (c *RedisMenuCache) Set(ctx context.Context, restaurantID uint, menu *models.Menu) error {
	raw, err := json.Marshal(menu)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, menuKey(restaurantID), raw, c.ttl).Err()
}

func (c *RedisMenuCache) Invalidate(ctx context.Context, restaurantID uint) error {
	return c.client.Del(ctx, menuKey(restaurantID)).Err()
}

// NopMenuCache never hits; it is used when Redis is not configured.
type NopMenuCache struct{}

func (NopMenuCache) Get(context.Context, uint) (*models.Menu, bool, error) { return nil, false, nil }
func (NopMenuCache) Set(context.Context, uint, *models.Menu) error { return nil }
func (NopMenuCache) Invalidate(context.Context, uint) error { return nil }
