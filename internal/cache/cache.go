// Package cache memoizes canonical pair rows keyed by the sorted pair and
// scoring scope. Entries are advisory: dropping the cache never
// changes a result, only its latency.
package cache

import (
	"context"
	"fmt"

	"github.com/vijay-prabhu/matchcompat/internal/config"
	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/logger"
	"github.com/vijay-prabhu/matchcompat/internal/scoring"
)

// Scopes lists every scope a pair may be cached under.
var Scopes = []scoring.Scope{scoring.ScopeAll, scoring.ScopeRequired, scoring.ScopeExcludeRequired}

// Key identifies a cached pair row. Low and High are the two user IDs in
// ascending order so both query directions share one entry.
type Key struct {
	Low   string
	High  string
	Scope scoring.Scope
}

// PairKey builds the key for a pair in either order.
func PairKey(a, b string, scope scoring.Scope) Key {
	if b < a {
		a, b = b, a
	}
	return Key{Low: a, High: b, Scope: scope}
}

func (k Key) String() string {
	return "pair:" + k.Low + ":" + k.High + ":" + string(k.Scope)
}

// ScoreCache stores canonical pair rows.
type ScoreCache interface {
	// Get returns a copy of the cached row, if present and fresh.
	Get(ctx context.Context, key Key) (*database.Compatibility, bool)
	// Set stores a copy of row.
	Set(ctx context.Context, key Key, row *database.Compatibility)
	// Invalidate drops every scope for the pairs (user, other).
	Invalidate(ctx context.Context, user string, others []string)
	// Clear drops everything.
	Clear(ctx context.Context) error
	Close() error
}

// New builds the cache backend named in cfg.
func New(ctx context.Context, cfg config.CacheConfig, log *logger.Logger) (ScoreCache, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemory(cfg.TTL()), nil
	case "redis":
		return NewRedis(ctx, RedisOptions{
			Addr:   cfg.RedisAddr,
			DB:     cfg.RedisDB,
			Prefix: cfg.KeyPrefix,
			TTL:    cfg.TTL(),
		}, log)
	case "none", "":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}

func pairKeys(user string, others []string) []Key {
	keys := make([]Key, 0, len(others)*len(Scopes))
	for _, other := range others {
		for _, scope := range Scopes {
			keys = append(keys, PairKey(user, other, scope))
		}
	}
	return keys
}

// None is a cache that never stores anything.
type None struct{}

func (None) Get(context.Context, Key) (*database.Compatibility, bool) { return nil, false }
func (None) Set(context.Context, Key, *database.Compatibility) {}
func (None) Invalidate(context.Context, string, []string) {}
func (None) Clear(context.Context) error { return nil }
func (None) Close() error { return nil }
