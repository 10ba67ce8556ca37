// Package recalc recomputes every stored pair for a user.
package recalc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vijay-prabhu/matchcompat/internal/constants"
	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/logger"
	"github.com/vijay-prabhu/matchcompat/internal/metrics"
	"github.com/vijay-prabhu/matchcompat/internal/pairstore"
	"github.com/vijay-prabhu/matchcompat/internal/scoring"
)

// ErrBudgetExhausted is returned when the context ran out mid-user. Pairs
// computed before that point have been written.
var ErrBudgetExhausted = errors.New("time budget exhausted")

const (
	// loadBatch is how many candidates are loaded per round trip
	loadBatch = 200
	// reportEvery throttles progress callbacks
	reportEvery = 25
	// flushTimeout bounds the partial write after the budget ran out
	flushTimeout = 30 * time.Second
)

// Options configures a recalculation
type Options struct {
	FullReset   bool             // Delete the user's rows before writing
	ResumeAfter string           // Skip candidates up to and including this ID; ignored with FullReset
	Progress    ProgressCallback // Optional progress callback
}

// Result contains the results of one user's recalculation
type Result struct {
	UserID     string                `json:"user_id"`
	Candidates int                   `json:"candidates"`
	Scored     int                   `json:"scored"`
	Written    pairstore.WriteResult `json:"written"`
	PairErrors int                   `json:"pair_errors"`
	Errors     []error               `json:"-"`
	Partial    bool                  `json:"partial"`
	Cursor     string                `json:"cursor,omitempty"` // Last candidate reached by a partial run
	Duration   time.Duration         `json:"duration"`
}

// Recalculator scores a user against every eligible candidate
type Recalculator struct {
	db        *database.DB
	store     *pairstore.Store
	constants *constants.Provider
	log       *logger.Logger
}

// New creates a Recalculator
func New(db *database.DB, store *pairstore.Store, provider *constants.Provider, log *logger.Logger) *Recalculator {
	return &Recalculator{
		db:        db,
		store:     store,
		constants: provider,
		log:       log.With("component", "BatchRecalculator"),
	}
}

// RecalculateAll scores userID against every other non-excluded user with
// at least one answer and writes the results.
//
// The context carries the caller's time budget. It is checked before every
// pair; when it runs out the pairs already scored are flushed in merge mode
// and ErrBudgetExhausted is returned. A scoring failure on one pair is
// logged and counted but does not stop the run.
func (r *Recalculator) RecalculateAll(ctx context.Context, userID string, opts Options) (*Result, error) {
	user, err := r.db.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", userID)
	}

	// Excluded users keep no pairs
	if user.Excluded {
		start := time.Now()
		res := &Result{UserID: user.ID}
		written, err := r.store.WriteBatch(ctx, user.ID, nil, pairstore.Reset)
		if err != nil {
			return nil, err
		}
		res.Written = written
		res.Duration = time.Since(start)
		return res, nil
	}

	candidates, err := r.db.EligibleUserIDs(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	if opts.ResumeAfter != "" && !opts.FullReset {
		candidates = candidatesAfter(candidates, opts.ResumeAfter)
	}
	return r.run(ctx, user.ID, candidates, opts)
}

// candidatesAfter drops the IDs up to and including cursor from a sorted list
func candidatesAfter(ids []string, cursor string) []string {
	i := sort.SearchStrings(ids, cursor)
	if i < len(ids) && ids[i] == cursor {
		i++
	}
	return ids[i:]
}

// RecalculateEveryone computes every pair between eligible users once,
// merging into the existing rows. Each user is scored only against users
// after it in ID order.
func (r *Recalculator) RecalculateEveryone(ctx context.Context, progress ProgressCallback) ([]*Result, error) {
	ids, err := r.db.EligibleUserIDs(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	sort.Strings(ids)

	var results []*Result
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("%w: %d of %d users done", ErrBudgetExhausted, i, len(ids))
		}
		res, err := r.run(ctx, id, ids[i+1:], Options{Progress: progress})
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (r *Recalculator) run(ctx context.Context, userID string, candidates []string, opts Options) (*Result, error) {
	start := time.Now()
	result := &Result{UserID: userID, Candidates: len(candidates)}
	if !opts.FullReset {
		result.Cursor = opts.ResumeAfter
	}

	report := func(phase ProgressPhase, current int, desc string) {
		if opts.Progress != nil {
			opts.Progress(Progress{
				Phase:       phase,
				UserID:      userID,
				Current:     current,
				Total:       len(candidates),
				Description: desc,
				StartedAt:   start,
			})
		}
	}

	calc, err := r.constants.Calculator(ctx)
	if err != nil {
		return nil, err
	}

	report(PhaseLoading, 0, "Loading answers")
	me, err := r.db.Parties(ctx, []string{userID})
	if err != nil {
		return nil, err
	}
	self := me[userID]

	bundles := make(map[string]scoring.Bundle, len(candidates))
	exhausted := false

pairs:
	for lo := 0; lo < len(candidates); lo += loadBatch {
		hi := min(lo+loadBatch, len(candidates))
		if ctx.Err() != nil {
			exhausted = true
			break
		}
		parties, err := r.db.Parties(ctx, candidates[lo:hi])
		if err != nil {
			if ctx.Err() != nil {
				exhausted = true
				break
			}
			return nil, err
		}

		for _, other := range candidates[lo:hi] {
			if ctx.Err() != nil {
				exhausted = true
				break pairs
			}
			result.Cursor = other

			bundle, err := calc.Evaluate(self, parties[other])
			if err != nil {
				result.PairErrors++
				result.Errors = append(result.Errors, fmt.Errorf("pair %s/%s: %w", userID, other, err))
				metrics.PairErrors.Inc()
				r.log.Warn("failed to score pair",
					"user_id", userID,
					"other_id", other,
					"error", err,
				)
				continue
			}
			bundles[other] = bundle
			result.Scored++

			if result.Scored%reportEvery == 0 {
				report(PhaseScoring, result.Scored+result.PairErrors, "Scoring pairs")
			}
		}
	}

	report(PhaseWriting, result.Scored+result.PairErrors, "Writing pairs")

	mode := pairstore.Merge
	writeCtx := ctx
	if exhausted {
		// A partial reset would drop pairs that were never rescored
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()
		result.Partial = true
	} else {
		result.Cursor = ""
		if opts.FullReset {
			mode = pairstore.Reset
		}
	}

	written, err := r.store.WriteBatch(writeCtx, userID, bundles, mode)
	if err != nil {
		return nil, err
	}
	result.Written = written
	result.Duration = time.Since(start)
	metrics.RecordRecalc(mode == pairstore.Reset, result.Duration)

	r.log.Info("recalculated user",
		"user_id", userID,
		"candidates", result.Candidates,
		"scored", result.Scored,
		"written", written.Written(),
		"unchanged", written.Unchanged,
		"pair_errors", result.PairErrors,
		"partial", result.Partial,
		"duration", result.Duration,
	)

	if exhausted {
		return result, fmt.Errorf("%w: %d of %d pairs scored for %s",
			ErrBudgetExhausted, result.Scored+result.PairErrors, result.Candidates, userID)
	}
	return result, nil
}
