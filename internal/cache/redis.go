package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/logger"
	"github.com/vijay-prabhu/matchcompat/internal/metrics"
)

const backendRedis = "redis"

// RedisOptions configures the redis backend
type RedisOptions struct {
	Addr   string
	DB     int
	Prefix string
	TTL    time.Duration
}

// Redis shares cached rows between processes. Failures are logged and
// treated as misses.
type Redis struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions, log *logger.Logger) (*Redis, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{
		log:    log.With("component", "RedisScoreCache"),
		rdb:    rdb,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
	}, nil
}

func (r *Redis) key(k Key) string {
	return r.prefix + k.String()
}

func (r *Redis) Get(ctx context.Context, key Key) (*database.Compatibility, bool) {
	raw, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		metrics.RecordCacheLookup(backendRedis, false)
		return nil, false
	}
	if err != nil {
		r.log.Warn("cache get failed", "key", key.String(), "error", err)
		metrics.RecordCacheError(backendRedis)
		return nil, false
	}

	row := &database.Compatibility{}
	if err := json.Unmarshal(raw, row); err != nil {
		r.log.Warn("cache entry undecodable", "key", key.String(), "error", err)
		metrics.RecordCacheError(backendRedis)
		return nil, false
	}
	metrics.RecordCacheLookup(backendRedis, true)
	return row, true
}

func (r *Redis) Set(ctx context.Context, key Key, row *database.Compatibility) {
	if row == nil {
		return
	}
	raw, err := json.Marshal(row)
	if err != nil {
		r.log.Warn("cache encode failed", "key", key.String(), "error", err)
		return
	}
	if err := r.rdb.Set(ctx, r.key(key), raw, r.ttl).Err(); err != nil {
		r.log.Warn("cache set failed", "key", key.String(), "error", err)
		metrics.RecordCacheError(backendRedis)
	}
}

func (r *Redis) Invalidate(ctx context.Context, user string, others []string) {
	keys := pairKeys(user, others)
	if len(keys) == 0 {
		return
	}

	pipe := r.rdb.Pipeline()
	const batch = 500
	for i := 0; i < len(keys); i += batch {
		end := min(i+batch, len(keys))
		names := make([]string, 0, end-i)
		for _, k := range keys[i:end] {
			names = append(names, r.key(k))
		}
		pipe.Del(ctx, names...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Warn("cache invalidate failed", "user_id", user, "pairs", len(others), "error", err)
		metrics.RecordCacheError(backendRedis)
		return
	}
	metrics.CacheInvalidations.WithLabelValues(backendRedis).Add(float64(len(keys)))
}

func (r *Redis) Clear(ctx context.Context) error {
	iter := r.rdb.Scan(ctx, 0, r.prefix+"pair:*", 500).Iterator()
	var names []string
	for iter.Next(ctx) {
		names = append(names, iter.Val())
		if len(names) == 500 {
			if err := r.rdb.Del(ctx, names...).Err(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			names = names[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache: %w", err)
	}
	if len(names) > 0 {
		if err := r.rdb.Del(ctx, names...).Err(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
