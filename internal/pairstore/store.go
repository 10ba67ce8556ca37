// Package pairstore persists one compatibility row per unordered pair and
// hands it back oriented toward whoever is asking. It is the only place
// that knows which user sits in which storage slot.
package pairstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/vijay-prabhu/matchcompat/internal/cache"
	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/logger"
	"github.com/vijay-prabhu/matchcompat/internal/metrics"
	"github.com/vijay-prabhu/matchcompat/internal/scoring"
)

// Mode selects how WriteBatch treats existing rows.
type Mode int

const (
	// Merge updates changed rows in place and inserts new pairs.
	Merge Mode = iota
	// Reset deletes every row touching the user before inserting.
	Reset
)

// Source says where a View came from.
type Source string

const (
	SourceCache Source = "cache"
	SourceStore Source = "store"
	SourceLive  Source = "live"
)

// View is a pair seen from UserID's side.
type View struct {
	UserID           string         `json:"user_id"`
	OtherID          string         `json:"other_id"`
	Scope            scoring.Scope  `json:"scope"`
	Result           scoring.Result `json:"result"`
	Bundle           scoring.Bundle `json:"bundle"`
	LastCalculatedAt *time.Time     `json:"last_calculated_at,omitempty"`
	Source           Source         `json:"source"`
}

// LiveFunc computes a bundle from the requester's side when nothing is
// stored. For the exclude-required scope only the base fields are used.
type LiveFunc func(ctx context.Context, scope scoring.Scope) (scoring.Bundle, error)

// WriteResult counts what a batch write did.
type WriteResult struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Swapped   int `json:"swapped"`
	Unchanged int `json:"unchanged"`
	Deleted   int `json:"deleted"`
}

// Written is the number of rows that changed.
func (r WriteResult) Written() int {
	return r.Inserted + r.Updated + r.Swapped
}

// Store reads and writes pair rows through the score cache.
type Store struct {
	db    *database.DB
	cache cache.ScoreCache
	log   *logger.Logger
	now   func() time.Time
}

// New creates a store. A nil cache disables caching.
func New(db *database.DB, c cache.ScoreCache, log *logger.Logger) *Store {
	if c == nil {
		c = cache.None{}
	}
	return &Store{
		db:    db,
		cache: c,
		log:   log.With("component", "PairStore"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Upsert writes one pair, computed from a's side, preserving the stored
// orientation if the pair already exists.
func (s *Store) Upsert(ctx context.Context, a, b string, bundle scoring.Bundle) error {
	existing, err := s.db.GetCompatibility(ctx, a, b)
	if err != nil {
		return fmt.Errorf("failed to look up pair: %w", err)
	}

	row, _ := rowFrom(a, b, bundle, existing, s.now())
	err = s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if existing == nil {
			return database.InsertCompatibilities(ctx, tx, []database.Compatibility{row})
		}
		return database.UpdateCompatibilities(ctx, tx, []database.Compatibility{row})
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx, a, []string{b})
	return nil
}

// Read returns the pair oriented toward requester. It checks the cache,
// then the store, and finally computes the pair live without persisting
// it. The exclude-required scope has no stored form and is always live
// on a cache miss.
func (s *Store) Read(ctx context.Context, requester, other string, scope scoring.Scope, live LiveFunc) (*View, error) {
	key := cache.PairKey(requester, other, scope)

	if row, ok := s.cache.Get(ctx, key); ok {
		return s.view(row, requester, scope, SourceCache), nil
	}

	if scope != scoring.ScopeExcludeRequired {
		row, err := s.db.GetCompatibility(ctx, requester, other)
		if err != nil {
			return nil, fmt.Errorf("failed to read pair: %w", err)
		}
		if row != nil {
			s.cache.Set(ctx, key, row)
			return s.view(row, requester, scope, SourceStore), nil
		}
	}

	if live == nil {
		return nil, nil
	}
	bundle, err := live(ctx, scope)
	if err != nil {
		return nil, err
	}
	row := rowFor(requester, other, bundle, s.now())
	s.cache.Set(ctx, key, &row)
	v := s.view(&row, requester, scope, SourceLive)
	v.LastCalculatedAt = nil
	return v, nil
}

func (s *Store) view(row *database.Compatibility, requester string, scope scoring.Scope, src Source) *View {
	b := bundleFor(row, requester)
	result := b.Base()
	if scope == scoring.ScopeRequired {
		result = b.Required()
	}
	at := row.LastCalculatedAt
	return &View{
		UserID:           requester,
		OtherID:          other(row, requester),
		Scope:            scope,
		Result:           result,
		Bundle:           b,
		LastCalculatedAt: &at,
		Source:           src,
	}
}

// WriteBatch stores bundles computed from user's side, keyed by the other
// user. Existing rows are partitioned into direct and swapped updates and
// new pairs are inserted, each group as one batched write in a single
// transaction. In Merge mode rows whose values did not change are left
// untouched.
func (s *Store) WriteBatch(ctx context.Context, user string, bundles map[string]scoring.Bundle, mode Mode) (WriteResult, error) {
	var res WriteResult

	existing, err := s.db.ListCompatibilitiesForUser(ctx, user)
	if err != nil {
		return res, fmt.Errorf("failed to load existing pairs: %w", err)
	}

	others := make([]string, 0, len(bundles))
	for id := range bundles {
		others = append(others, id)
	}
	sort.Strings(others)

	now := s.now()
	var direct, swapped, inserts []database.Compatibility
	touched := make([]string, 0, len(others)+len(existing))

	if mode == Reset {
		for i := range existing {
			touched = append(touched, other(&existing[i], user))
		}
		for _, id := range others {
			row, _ := rowFrom(user, id, bundles[id], nil, now)
			inserts = append(inserts, row)
		}
		res.Deleted = len(existing)
	} else {
		byOther := make(map[string]*database.Compatibility, len(existing))
		for i := range existing {
			byOther[other(&existing[i], user)] = &existing[i]
		}

		for _, id := range others {
			prev := byOther[id]
			row, isSwapped := rowFrom(user, id, bundles[id], prev, now)
			switch {
			case prev == nil:
				inserts = append(inserts, row)
			case row.SameScores(prev):
				res.Unchanged++
				continue
			case isSwapped:
				swapped = append(swapped, row)
			default:
				direct = append(direct, row)
			}
			touched = append(touched, id)
		}
	}

	err = s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if mode == Reset {
			if _, err := database.DeleteCompatibilitiesForUser(ctx, tx, user); err != nil {
				return fmt.Errorf("failed to delete pairs: %w", err)
			}
		}
		if err := database.UpdateCompatibilities(ctx, tx, direct); err != nil {
			return err
		}
		if err := database.UpdateCompatibilities(ctx, tx, swapped); err != nil {
			return err
		}
		return database.InsertCompatibilities(ctx, tx, inserts)
	})
	if err != nil {
		return WriteResult{}, err
	}

	res.Inserted = len(inserts)
	res.Updated = len(direct)
	res.Swapped = len(swapped)
	if mode == Reset {
		touched = append(touched, others...)
	}

	s.cache.Invalidate(ctx, user, touched)
	metrics.RecordPairWrites(res.Inserted, res.Updated, res.Swapped, res.Unchanged)

	s.log.Debug("pairs written",
		"user_id", user,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"swapped", res.Swapped,
		"unchanged", res.Unchanged,
		"deleted", res.Deleted,
	)
	return res, nil
}

// ListForUser returns every stored pair touching user, oriented toward
// user. Rows come straight from the store.
func (s *Store) ListForUser(ctx context.Context, user string, scope scoring.Scope) ([]View, error) {
	rows, err := s.db.ListCompatibilitiesForUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to list pairs: %w", err)
	}
	views := make([]View, 0, len(rows))
	for i := range rows {
		views = append(views, *s.view(&rows[i], user, scope, SourceStore))
	}
	return views, nil
}
