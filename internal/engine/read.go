package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/vijay-prabhu/matchcompat/internal/pairstore"
	"github.com/vijay-prabhu/matchcompat/internal/scoring"
)

// ReadCompatibility returns the pair a/b seen from a's side. Conflicting
// scope flags are rejected before anything is read. Pairs that have not
// been stored yet are computed on the fly and cached, not persisted.
func (e *Engine) ReadCompatibility(ctx context.Context, a, b string, opts scoring.ReadOptions) (*pairstore.View, error) {
	scope, err := opts.Scope()
	if err != nil {
		return nil, err
	}

	me, err := e.ResolveUser(ctx, a)
	if err != nil {
		return nil, err
	}
	them, err := e.ResolveUser(ctx, b)
	if err != nil {
		return nil, err
	}
	if me.ID == them.ID {
		return nil, fmt.Errorf("%w: cannot compare a user with themselves", scoring.ErrInvalidRequest)
	}

	return e.store.Read(ctx, me.ID, them.ID, scope, e.live(me.ID, them.ID))
}

// live computes a bundle for me against them from current answers
func (e *Engine) live(me, them string) pairstore.LiveFunc {
	return func(ctx context.Context, scope scoring.Scope) (scoring.Bundle, error) {
		parties, err := e.db.Parties(ctx, []string{me, them})
		if err != nil {
			return scoring.Bundle{}, err
		}
		mine, theirs := parties[me], parties[them]

		if scope == scoring.ScopeExcludeRequired {
			c, err := e.constants.Current(ctx)
			if err != nil {
				return scoring.Bundle{}, err
			}
			exclude := scoring.NewQuestionSet(append(mine.Required.Sorted(), theirs.Required.Sorted()...)...)
			res, err := scoring.NewCalculator(c).ScoreExcluding(mine.Answers, theirs.Answers, exclude)
			if err != nil {
				return scoring.Bundle{}, err
			}
			return scoring.Bundle{
				Overall:          res.Overall,
				CompatibleWithMe: res.CompatibleWithMe,
				ImCompatibleWith: res.ImCompatibleWith,
				MutualCount:      res.MutualCount,
			}, nil
		}

		calc, err := e.constants.Calculator(ctx)
		if err != nil {
			return scoring.Bundle{}, err
		}
		return calc.Evaluate(mine, theirs)
	}
}

// Match field names accepted by MatchOptions.SortBy
const (
	SortOverall          = "overall"
	SortCompatibleWithMe = "compatible_with_me"
	SortImCompatibleWith = "im_compatible_with"
)

// MatchOptions filters and pages a user's stored matches
type MatchOptions struct {
	SortBy       string
	RequiredOnly bool
	Min          float64
	Max          float64
	Limit        int
	Offset       int
}

// Match is one stored pair from the requesting user's side
type Match struct {
	UserID   string         `json:"user_id"`
	Username string         `json:"username"`
	Result   scoring.Result `json:"result"`
}

// Matches lists the user's stored pairs whose chosen score lies within
// [Min, Max], best first. Only stored rows are listed; excluded users and
// pairs not yet computed are left out.
func (e *Engine) Matches(ctx context.Context, ref string, opts MatchOptions) ([]Match, error) {
	if opts.Offset < 0 || opts.Limit < 0 {
		return nil, fmt.Errorf("%w: offset and limit must not be negative", scoring.ErrInvalidRequest)
	}

	u, err := e.ResolveUser(ctx, ref)
	if err != nil {
		return nil, err
	}

	pick, err := scoreField(opts.SortBy)
	if err != nil {
		return nil, err
	}
	if opts.Max == 0 {
		opts.Max = 100
	}

	scope := scoring.ScopeAll
	if opts.RequiredOnly {
		scope = scoring.ScopeRequired
	}
	views, err := e.store.ListForUser(ctx, u.ID, scope)
	if err != nil {
		return nil, err
	}

	users, err := e.db.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	names := make(map[string]string, len(users))
	excluded := make(map[string]bool)
	for _, usr := range users {
		names[usr.ID] = usr.Username
		excluded[usr.ID] = usr.Excluded
	}

	var matches []Match
	for _, v := range views {
		if excluded[v.OtherID] {
			continue
		}
		score := pick(v.Result)
		if score < opts.Min || score > opts.Max {
			continue
		}
		matches = append(matches, Match{UserID: v.OtherID, Username: names[v.OtherID], Result: v.Result})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		si, sj := pick(matches[i].Result), pick(matches[j].Result)
		if si != sj {
			return si > sj
		}
		return matches[i].Username < matches[j].Username
	})

	if opts.Offset >= len(matches) {
		return []Match{}, nil
	}
	matches = matches[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(matches) {
		matches = matches[:opts.Limit]
	}
	return matches, nil
}

func scoreField(name string) (func(scoring.Result) float64, error) {
	switch name {
	case "", SortOverall:
		return func(r scoring.Result) float64 { return r.Overall }, nil
	case SortCompatibleWithMe:
		return func(r scoring.Result) float64 { return r.CompatibleWithMe }, nil
	case SortImCompatibleWith:
		return func(r scoring.Result) float64 { return r.ImCompatibleWith }, nil
	default:
		return nil, fmt.Errorf("%w: unknown sort field %q", scoring.ErrInvalidRequest, name)
	}
}
