package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/vijay-prabhu/matchcompat/internal/config"
	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/logger"
	"github.com/vijay-prabhu/matchcompat/internal/scoring"
)

func TestPairKeyIsOrderIndependent(t *testing.T) {
	a := PairKey("u2", "u1", scoring.ScopeAll)
	b := PairKey("u1", "u2", scoring.ScopeAll)
	if a != b {
		t.Errorf("expected equal keys, got %v and %v", a, b)
	}
	if a.String() != "pair:u1:u2:all" {
		t.Errorf("unexpected key string %q", a.String())
	}
	if PairKey("u1", "u2", scoring.ScopeRequired) == a {
		t.Error("expected scope to distinguish keys")
	}
}

func TestMemoryGetSet(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Close()
	ctx := context.Background()

	key := PairKey("a", "b", scoring.ScopeAll)
	if _, ok := m.Get(ctx, key); ok {
		t.Fatal("expected miss on empty cache")
	}

	row := &database.Compatibility{Slot1ID: "a", Slot2ID: "b", Overall: 42}
	m.Set(ctx, key, row)
	row.Overall = 0 // cached copy must not alias

	got, ok := m.Get(ctx, key)
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Overall != 42 {
		t.Errorf("expected overall 42, got %v", got.Overall)
	}

	stats := m.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Keys != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.HitRate() != 50 {
		t.Errorf("expected 50%% hit rate, got %v", stats.HitRate())
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(10 * time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	key := PairKey("a", "b", scoring.ScopeAll)
	m.Set(ctx, key, &database.Compatibility{Overall: 1})
	time.Sleep(25 * time.Millisecond)

	if _, ok := m.Get(ctx, key); ok {
		t.Error("expected expired entry to miss")
	}
	if m.Stats().Evictions < 1 {
		t.Error("expected an eviction to be recorded")
	}
}

func TestMemoryInvalidate(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Close()
	ctx := context.Background()

	for _, scope := range Scopes {
		m.Set(ctx, PairKey("a", "b", scope), &database.Compatibility{})
		m.Set(ctx, PairKey("a", "c", scope), &database.Compatibility{})
		m.Set(ctx, PairKey("b", "c", scope), &database.Compatibility{})
	}

	m.Invalidate(ctx, "a", []string{"b", "c"})

	for _, scope := range Scopes {
		if _, ok := m.Get(ctx, PairKey("b", "a", scope)); ok {
			t.Errorf("expected a/b %s to be invalidated", scope)
		}
		if _, ok := m.Get(ctx, PairKey("c", "a", scope)); ok {
			t.Errorf("expected a/c %s to be invalidated", scope)
		}
		if _, ok := m.Get(ctx, PairKey("b", "c", scope)); !ok {
			t.Errorf("expected b/c %s to survive", scope)
		}
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if m.Stats().Keys != 0 {
		t.Errorf("expected empty cache after Clear, got %d keys", m.Stats().Keys)
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		backend string
		wantErr bool
	}{
		{"memory", false},
		{"none", false},
		{"bogus", true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config.Default().Cache
			cfg.Backend = tt.backend
			c, err := New(ctx, cfg, logger.Nop())
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer c.Close()
		})
	}
}

func TestNoneNeverHits(t *testing.T) {
	ctx := context.Background()
	var c ScoreCache = None{}
	key := PairKey("a", "b", scoring.ScopeAll)
	c.Set(ctx, key, &database.Compatibility{})
	if _, ok := c.Get(ctx, key); ok {
		t.Error("expected None to never hit")
	}
}

// TestRedis runs against a live server when MATCHCOMPAT_TEST_REDIS is set.
func TestRedis(t *testing.T) {
	addr := os.Getenv("MATCHCOMPAT_TEST_REDIS")
	if addr == "" {
		t.Skip("MATCHCOMPAT_TEST_REDIS not set")
	}
	ctx := context.Background()

	r, err := NewRedis(ctx, RedisOptions{Addr: addr, Prefix: "matchcompat-test:", TTL: time.Minute}, logger.Nop())
	if err != nil {
		t.Fatalf("NewRedis failed: %v", err)
	}
	defer r.Close()
	defer r.Clear(ctx)

	key := PairKey("a", "b", scoring.ScopeRequired)
	r.Set(ctx, key, &database.Compatibility{Slot1ID: "a", Slot2ID: "b", RequiredOverall: 12.5})

	got, ok := r.Get(ctx, key)
	if !ok || got.RequiredOverall != 12.5 {
		t.Fatalf("expected cached row, got %+v (ok=%v)", got, ok)
	}

	r.Invalidate(ctx, "b", []string{"a"})
	if _, ok := r.Get(ctx, key); ok {
		t.Error("expected invalidated key to miss")
	}
}
