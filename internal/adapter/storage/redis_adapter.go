package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const stockKeyPrefix = "stock:"

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) DecrementStock(ctx context.Context, productKey string, quantity int) error {
	key := stockKeyPrefix + productKey
	return r.client.DecrBy(ctx, key, int64(quantity)).Err()
}

func (r *RedisAdapter) IncrementStock(ctx context.Context, productKey string, quantity int) error {
	key := stockKeyPrefix + productKey
	return r.client.IncrBy(ctx, key, int64(quantity)).Err()
}

func (r *RedisAdapter) GetStock(ctx context.Context, productKey string) (int, error) {
	stock, err := r.client.Get(ctx, stockKeyPrefix+productKey).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return stock, err
}
