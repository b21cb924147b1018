package commands

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/marketplace/internal/adapter/storage"
	"github.com/rl1809/marketplace/internal/config"
	"github.com/rl1809/marketplace/internal/port"
)

// backends holds the cache and receipt store selected by the config.
type backends struct {
	cache    port.CacheRepository
	receipts port.ReceiptRepository
	closers  []func() error
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backends, error) {
	b := &backends{}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		// the mirror must start from an empty exchange
		if err := clearStock(ctx, rdb); err != nil {
			rdb.Close()
			return nil, err
		}
		b.cache = storage.NewRedisAdapter(rdb)
		b.closers = append(b.closers, rdb.Close)
		logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		b.cache = storage.NewMemoryCache()
	}

	switch cfg.Receipts.Driver {
	case "mysql", "sqlite3":
		db, err := storage.OpenSQL(ctx, cfg.Receipts.Driver, cfg.Receipts.DSN)
		if err != nil {
			b.Close()
			return nil, err
		}
		store := storage.NewSQLAdapter(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			b.Close()
			return nil, err
		}
		b.receipts = store
		b.closers = append(b.closers, db.Close)
		logger.Info("receipt store ready", zap.String("driver", cfg.Receipts.Driver))
	default:
		b.receipts = storage.NewMemoryReceiptStore()
	}

	return b, nil
}

func clearStock(ctx context.Context, rdb *redis.Client) error {
	iter := rdb.Scan(ctx, 0, "stock:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("clear stock cache: %w", err)
		}
	}
	return iter.Err()
}
