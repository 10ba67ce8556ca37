// Package worker drains pending recalculation jobs under an item and time
// budget.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/logger"
	"github.com/vijay-prabhu/matchcompat/internal/metrics"
	"github.com/vijay-prabhu/matchcompat/internal/queue"
	"github.com/vijay-prabhu/matchcompat/internal/recalc"
)

// TickSummary reports what one tick did. Job failures are recorded on the
// job rows and counted here.
type TickSummary struct {
	Processed       int           `json:"processed"`
	Completed       int           `json:"completed"`
	Failed          int           `json:"failed"`
	Released        int           `json:"released"`
	Conflicts       int           `json:"conflicts"`
	Remaining       int           `json:"remaining"`
	BudgetExhausted bool          `json:"budget_exhausted"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Recalculator recomputes one user's pairs
type Recalculator interface {
	RecalculateAll(ctx context.Context, userID string, opts recalc.Options) (*recalc.Result, error)
}

// Worker runs claimed jobs through the recalculator one at a time
type Worker struct {
	queue  *queue.Queue
	recalc Recalculator
	log    *logger.Logger
}

// New creates a Worker
func New(q *queue.Queue, r Recalculator, log *logger.Logger) *Worker {
	return &Worker{
		queue:  q,
		recalc: r,
		log:    log.With("component", "IncrementalWorker"),
	}
}

// Tick processes pending jobs in queue order until maxItems jobs have been
// taken or maxDuration has passed. A zero or negative limit means no limit.
// The budget is checked before each claim and inside the recalculation;
// a job cut short by the budget goes to the back of the queue and resumes
// after the last candidate it reached.
func (w *Worker) Tick(ctx context.Context, maxItems int, maxDuration time.Duration) TickSummary {
	start := time.Now()
	var summary TickSummary

	var budget context.Context
	var cancel context.CancelFunc
	if maxDuration > 0 {
		budget, cancel = context.WithTimeout(ctx, maxDuration)
	} else {
		budget, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	for maxItems <= 0 || summary.Processed < maxItems {
		if budget.Err() != nil {
			summary.BudgetExhausted = true
			break
		}

		job, err := w.queue.Claim(budget)
		if err != nil {
			if budget.Err() != nil {
				summary.BudgetExhausted = true
			} else {
				w.log.Error("failed to claim job", "error", err)
			}
			break
		}
		if job == nil {
			break
		}
		summary.Processed++

		w.run(ctx, budget, job, &summary)
	}

	remaining, err := w.queue.Pending(ctx)
	if err != nil {
		w.log.Warn("failed to count pending jobs", "error", err)
	} else {
		summary.Remaining = remaining
		metrics.PendingJobs.Set(float64(remaining))
	}

	summary.Elapsed = time.Since(start)
	metrics.TickDuration.Observe(summary.Elapsed.Seconds())

	w.log.Info("tick finished",
		"processed", summary.Processed,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"released", summary.Released,
		"remaining", summary.Remaining,
		"budget_exhausted", summary.BudgetExhausted,
		"elapsed", summary.Elapsed,
	)
	return summary
}

// run recalculates one claimed job and records its outcome. Transitions
// use ctx rather than budget so they still land after the deadline.
func (w *Worker) run(ctx, budget context.Context, job *database.Job, summary *TickSummary) {
	log := w.log.With("job_id", job.ID, "user_id", job.UserID, "attempt", job.Attempts)

	res, runErr := w.recalc.RecalculateAll(budget, job.UserID, recalc.Options{ResumeAfter: job.ResumeAfter})

	var outcome string
	var err error
	switch {
	case runErr == nil:
		outcome = "completed"
		err = w.queue.Complete(ctx, job)
	case errors.Is(runErr, recalc.ErrBudgetExhausted), budget.Err() != nil:
		outcome = "released"
		summary.BudgetExhausted = true
		err = w.queue.Release(ctx, job, resumeCursor(job, res))
	default:
		outcome = "failed"
		err = w.queue.Fail(ctx, job, runErr)
	}

	if err != nil {
		if errors.Is(err, database.ErrJobConflict) {
			// Re-enqueued while running; the fresh pending row stands
			summary.Conflicts++
			log.Info("job reset during processing", "outcome", outcome)
			return
		}
		log.Error("failed to record job outcome", "outcome", outcome, "error", err)
		return
	}

	metrics.JobsFinished.WithLabelValues(outcome).Inc()
	switch outcome {
	case "completed":
		summary.Completed++
		log.Debug("job completed", "scored", res.Scored, "written", res.Written.Written())
	case "released":
		summary.Released++
		log.Info("job released, budget exhausted", "resume_after", job.ResumeAfter)
	case "failed":
		summary.Failed++
		log.Warn("job failed", "error", runErr)
	}
}

// resumeCursor picks where the next run of a released job starts
func resumeCursor(job *database.Job, res *recalc.Result) string {
	if res == nil {
		return job.ResumeAfter
	}
	return res.Cursor
}
