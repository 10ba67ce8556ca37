// Package queue keeps at most one outstanding recalculation job per user
// and decides when an answer write should put a user on it.
package queue

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/logger"
	"github.com/vijay-prabhu/matchcompat/internal/metrics"
)

// ReasonInsufficientAnswers is reported when a user is below the match-ready threshold
const ReasonInsufficientAnswers = "insufficient_answers"

// EnqueueResult describes what Enqueue did
type EnqueueResult struct {
	Created bool   `json:"created"`
	Updated bool   `json:"updated"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}

// Outcome names the result for logs and metrics
func (r EnqueueResult) Outcome() string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Created:
		return "created"
	case r.Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Queue manages recalculation jobs
type Queue struct {
	db        *database.DB
	threshold int
	log       *logger.Logger
}

// New creates a queue. threshold is the match-ready answer count.
func New(db *database.DB, threshold int, log *logger.Logger) *Queue {
	return &Queue{
		db:        db,
		threshold: threshold,
		log:       log.With("component", "JobQueue"),
	}
}

// Threshold returns the match-ready answer count
func (q *Queue) Threshold() int {
	return q.threshold
}

// Enqueue makes sure the user has a pending job. Unless force is set,
// users below the match-ready threshold are skipped and no row is created.
// A job that is not pending, or any job when forced, is reset to pending
// with its error cleared. An already pending job keeps its place in the
// queue. Either way a saved resume cursor is dropped.
func (q *Queue) Enqueue(ctx context.Context, userID string, force bool) (EnqueueResult, error) {
	if !force {
		count, err := q.db.CountAnswers(ctx, userID)
		if err != nil {
			return EnqueueResult{}, fmt.Errorf("failed to count answers: %w", err)
		}
		if count < q.threshold {
			res := EnqueueResult{Skipped: true, Reason: ReasonInsufficientAnswers}
			q.record(userID, force, res)
			return res, nil
		}
	}

	var res EnqueueResult
	err := q.db.Transaction(ctx, func(tx *sql.Tx) error {
		job, err := database.GetJobForUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		if job == nil {
			res.Created = true
			return database.InsertJob(ctx, tx, &database.Job{UserID: userID})
		}

		if job.Status != database.JobPending || force {
			res.Updated = true
			return database.ResetJob(ctx, tx, job.ID)
		}

		return database.TouchJob(ctx, tx, job.ID)
	})
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("failed to enqueue user %s: %w", userID, err)
	}

	q.record(userID, force, res)
	return res, nil
}

func (q *Queue) record(userID string, force bool, res EnqueueResult) {
	metrics.Enqueues.WithLabelValues(res.Outcome()).Inc()
	q.log.Debug("enqueue",
		"user_id", userID,
		"force", force,
		"result", res.Outcome(),
	)
}

// Claim takes the longest-queued pending job, or returns nil when none is pending
func (q *Queue) Claim(ctx context.Context) (*database.Job, error) {
	return q.db.ClaimNextJob(ctx)
}

// Complete marks a claimed job as completed
func (q *Queue) Complete(ctx context.Context, job *database.Job) error {
	return q.transition(ctx, job, database.JobCompleted, "")
}

// Fail marks a claimed job as failed with the cause's message
func (q *Queue) Fail(ctx context.Context, job *database.Job, cause error) error {
	msg := ""
	if cause != nil {
		msg = truncateError(cause.Error())
	}
	return q.transition(ctx, job, database.JobFailed, msg)
}

// Release returns a claimed job to pending without recording a failure.
// It moves to the back of the queue and its next run starts after
// resumeAfter.
func (q *Queue) Release(ctx context.Context, job *database.Job, resumeAfter string) error {
	if !CanTransition(job.Status, database.JobPending) {
		return fmt.Errorf("invalid job transition %s -> %s", job.Status, database.JobPending)
	}
	if err := q.db.ReleaseJob(ctx, job.ID, resumeAfter); err != nil {
		return err
	}
	job.Status = database.JobPending
	job.ErrorMessage = ""
	job.ResumeAfter = resumeAfter
	return nil
}

func (q *Queue) transition(ctx context.Context, job *database.Job, to database.JobStatus, errMsg string) error {
	if !CanTransition(job.Status, to) {
		return fmt.Errorf("invalid job transition %s -> %s", job.Status, to)
	}
	if err := q.db.TransitionJob(ctx, job.ID, job.Status, to, errMsg); err != nil {
		return err
	}
	job.Status = to
	job.ErrorMessage = errMsg
	return nil
}

// Status returns the user's job, or nil if they never had one
func (q *Queue) Status(ctx context.Context, userID string) (*database.Job, error) {
	return q.db.GetJobForUser(ctx, userID)
}

// List returns jobs in claim order
func (q *Queue) List(ctx context.Context, opts database.JobListOptions) ([]database.Job, error) {
	return q.db.ListJobs(ctx, opts)
}

// Counts returns the number of jobs per status
func (q *Queue) Counts(ctx context.Context) (map[database.JobStatus]int, error) {
	return q.db.CountJobs(ctx)
}

// Pending returns the number of pending jobs
func (q *Queue) Pending(ctx context.Context) (int, error) {
	counts, err := q.db.CountJobs(ctx)
	if err != nil {
		return 0, err
	}
	return counts[database.JobPending], nil
}

// ClaimUser claims the user's job if it is still pending, or returns nil
func (q *Queue) ClaimUser(ctx context.Context, userID string) (*database.Job, error) {
	return q.db.ClaimJobForUser(ctx, userID)
}
