// Package engine wires storage, scoring, the job queue and the worker
// together and exposes the operations the CLI and MCP server call.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vijay-prabhu/matchcompat/internal/cache"
	"github.com/vijay-prabhu/matchcompat/internal/config"
	"github.com/vijay-prabhu/matchcompat/internal/constants"
	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/logger"
	"github.com/vijay-prabhu/matchcompat/internal/pairstore"
	"github.com/vijay-prabhu/matchcompat/internal/queue"
	"github.com/vijay-prabhu/matchcompat/internal/recalc"
	"github.com/vijay-prabhu/matchcompat/internal/scoring"
	"github.com/vijay-prabhu/matchcompat/internal/worker"
)

// ErrUserNotFound is returned when a user reference matches no user
var ErrUserNotFound = errors.New("user not found")

// Engine orchestrates the compatibility pipeline
type Engine struct {
	cfg       *config.Config
	db        *database.DB
	cache     cache.ScoreCache
	constants *constants.Provider
	store     *pairstore.Store
	queue     *queue.Queue
	policy    *queue.Policy
	recalc    *recalc.Recalculator
	worker    *worker.Worker
	log       *logger.Logger
}

// Open creates the data directory, opens the database and cache, and
// returns a ready engine
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Engine, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	c, err := cache.New(ctx, cfg.Cache, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	return New(cfg, db, c, log), nil
}

// New assembles an engine over an open database and cache
func New(cfg *config.Config, db *database.DB, c cache.ScoreCache, log *logger.Logger) *Engine {
	if c == nil {
		c = cache.None{}
	}
	provider := constants.NewProvider(db)
	store := pairstore.New(db, c, log)
	q := queue.New(db, cfg.Scoring.MatchReadyThreshold, log)
	r := recalc.New(db, store, provider, log)

	return &Engine{
		cfg:       cfg,
		db:        db,
		cache:     c,
		constants: provider,
		store:     store,
		queue:     q,
		policy:    queue.NewPolicy(db, cfg.Scoring),
		recalc:    r,
		worker:    worker.New(q, r, log),
		log:       log.With("component", "Engine"),
	}
}

// Close releases the cache and database
func (e *Engine) Close() error {
	return errors.Join(e.cache.Close(), e.db.Close())
}

// Health checks that the database is reachable
func (e *Engine) Health(ctx context.Context) error {
	return e.db.Health(ctx)
}

// DB exposes the database for listing commands
func (e *Engine) DB() *database.DB {
	return e.db
}

// Worker returns the incremental worker
func (e *Engine) Worker() *worker.Worker {
	return e.worker
}

// Config returns the engine's configuration
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// ResolveUser finds a user by ID or username
func (e *Engine) ResolveUser(ctx context.Context, ref string) (*database.User, error) {
	u, err := e.db.GetUser(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, ref)
	}
	return u, nil
}

// CurrentConstants returns the scoring constants in effect
func (e *Engine) CurrentConstants(ctx context.Context) (scoring.Constants, error) {
	return e.constants.Current(ctx)
}

// InvalidateConstants drops the in-memory constants so the next read
// reloads them. Call it after the controls row is changed elsewhere.
func (e *Engine) InvalidateConstants() {
	e.constants.Invalidate()
}

// UpdateConstants validates and stores new constants. Stored pairs keep
// their old values until their users are recalculated.
func (e *Engine) UpdateConstants(ctx context.Context, c scoring.Constants) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := e.db.UpdateControls(ctx, c); err != nil {
		return fmt.Errorf("failed to update constants: %w", err)
	}
	e.constants.Invalidate()
	if err := e.cache.Clear(ctx); err != nil {
		e.log.Warn("failed to clear cache after constants update", "error", err)
	}
	e.log.Info("constants updated",
		"adjust_magnitude", c.AdjustMagnitude,
		"importance_exponent", c.ImportanceExponent,
		"open_to_all_weight", c.OpenToAllWeight,
	)
	return nil
}

// ScheduledTick runs the incremental worker once with the given budget.
// Zero values fall back to the configured worker budget.
func (e *Engine) ScheduledTick(ctx context.Context, maxItems int, maxDuration time.Duration) worker.TickSummary {
	if maxItems == 0 {
		maxItems = e.cfg.Worker.MaxItems
	}
	if maxDuration == 0 {
		maxDuration = e.cfg.Worker.MaxDuration()
	}
	return e.worker.Tick(ctx, maxItems, maxDuration)
}

// Enqueue puts a user on the recalculation queue
func (e *Engine) Enqueue(ctx context.Context, ref string, force bool) (queue.EnqueueResult, error) {
	u, err := e.ResolveUser(ctx, ref)
	if err != nil {
		return queue.EnqueueResult{}, err
	}
	return e.queue.Enqueue(ctx, u.ID, force)
}

// JobView is a user's job as shown to operators
type JobView struct {
	UserID        string             `json:"user_id"`
	Username      string             `json:"username"`
	Status        database.JobStatus `json:"status"`
	Attempts      int                `json:"attempts"`
	LastError     string             `json:"last_error,omitempty"`
	LastAttemptAt *time.Time         `json:"last_attempt_at,omitempty"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// JobStatus returns the user's job, or nil if they have never been queued
func (e *Engine) JobStatus(ctx context.Context, ref string) (*JobView, error) {
	u, err := e.ResolveUser(ctx, ref)
	if err != nil {
		return nil, err
	}
	job, err := e.queue.Status(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		return nil, nil
	}
	return &JobView{
		UserID:        u.ID,
		Username:      u.Username,
		Status:        job.Status,
		Attempts:      job.Attempts,
		LastError:     job.ErrorMessage,
		LastAttemptAt: job.LastAttemptAt,
		UpdatedAt:     job.UpdatedAt,
	}, nil
}

// ListJobs returns jobs oldest first, optionally filtered by status
func (e *Engine) ListJobs(ctx context.Context, opts database.JobListOptions) ([]database.Job, error) {
	return e.queue.List(ctx, opts)
}

// Recalculate recomputes one user's pairs immediately, outside the queue
func (e *Engine) Recalculate(ctx context.Context, ref string, opts recalc.Options) (*recalc.Result, error) {
	u, err := e.ResolveUser(ctx, ref)
	if err != nil {
		return nil, err
	}
	return e.recalc.RecalculateAll(ctx, u.ID, opts)
}

// RecalculateEveryone computes every eligible pair once
func (e *Engine) RecalculateEveryone(ctx context.Context, progress recalc.ProgressCallback) ([]*recalc.Result, error) {
	return e.recalc.RecalculateEveryone(ctx, progress)
}

// Stats returns counts across users, pairs and jobs
func (e *Engine) Stats(ctx context.Context) (*database.Stats, error) {
	return e.db.GetStats(ctx)
}

// ClearCache drops every cached pair
func (e *Engine) ClearCache(ctx context.Context) error {
	return e.cache.Clear(ctx)
}
