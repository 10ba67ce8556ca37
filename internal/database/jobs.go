package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrJobConflict is returned when a job is no longer in the expected status
var ErrJobConflict = errors.New("job status changed concurrently")

const jobColumns = `id, user_id, status, attempts, last_attempt_at, error_message, resume_after, queued_at, created_at, updated_at`

func scanJob(s scanner) (*Job, error) {
	j := &Job{}
	var lastAttempt sql.NullTime
	if err := s.Scan(
		&j.ID, &j.UserID, &j.Status, &j.Attempts, &lastAttempt,
		&j.ErrorMessage, &j.ResumeAfter, &j.QueuedAt, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, err
	}
	j.LastAttemptAt = TimePtr(lastAttempt)
	return j, nil
}

// GetJobForUser retrieves the job for a user, or nil if none exists
func GetJobForUser(ctx context.Context, q Querier, userID string) (*Job, error) {
	j, err := scanJob(q.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM recalculation_jobs WHERE user_id = ?
	`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

// GetJobForUser retrieves the job for a user, or nil if none exists
func (db *DB) GetJobForUser(ctx context.Context, userID string) (*Job, error) {
	return GetJobForUser(ctx, db, userID)
}

// InsertJob creates a pending job
func InsertJob(ctx context.Context, q Querier, j *Job) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	j.Status = JobPending
	j.QueuedAt = now
	j.CreatedAt = now
	j.UpdatedAt = now

	_, err := q.ExecContext(ctx, `
		INSERT INTO recalculation_jobs (id, user_id, status, attempts, error_message, queued_at, created_at, updated_at)
		VALUES (?, ?, ?, 0, '', ?, ?, ?)
	`, j.ID, j.UserID, j.Status, j.QueuedAt, j.CreatedAt, j.UpdatedAt)
	return err
}

// ResetJob puts a job back to pending and clears its error and resume
// cursor. A job that was already pending keeps its place in the queue.
func ResetJob(ctx context.Context, q Querier, id string) error {
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, `
		UPDATE recalculation_jobs
		SET queued_at = CASE WHEN status = ? THEN queued_at ELSE ? END,
		    status = ?, error_message = '', resume_after = '', updated_at = ?
		WHERE id = ?
	`, JobPending, now, JobPending, now, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("job not found: %s", id)
	}
	return nil
}

// TouchJob bumps a job's updated_at without changing its status. The
// resume cursor is dropped since pairs scored before it are now stale.
func TouchJob(ctx context.Context, q Querier, id string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE recalculation_jobs SET resume_after = '', updated_at = ? WHERE id = ?
	`, time.Now().UTC(), id)
	return err
}

// ClaimNextJob moves the longest-queued pending job to processing and returns it.
// The update is conditional on the row still being pending, so concurrent
// workers never claim the same job. Returns nil when nothing is pending.
func (db *DB) ClaimNextJob(ctx context.Context) (*Job, error) {
	for {
		var id string
		err := db.QueryRowContext(ctx, `
			SELECT id FROM recalculation_jobs
			WHERE status = ?
			ORDER BY queued_at ASC, id ASC
			LIMIT 1
		`, JobPending).Scan(&id)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		j, err := db.claim(ctx, id)
		if err != nil {
			return nil, err
		}
		if j == nil {
			// Lost the race, try the next one
			continue
		}
		return j, nil
	}
}

// ClaimJobForUser claims the user's job if it is pending, or returns nil
func (db *DB) ClaimJobForUser(ctx context.Context, userID string) (*Job, error) {
	j, err := db.GetJobForUser(ctx, userID)
	if err != nil || j == nil || j.Status != JobPending {
		return nil, err
	}
	return db.claim(ctx, j.ID)
}

// claim moves a pending job to processing, returning nil if it was not pending
func (db *DB) claim(ctx context.Context, id string) (*Job, error) {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, `
		UPDATE recalculation_jobs
		SET status = ?, attempts = attempts + 1, last_attempt_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, JobProcessing, now, now, id, JobPending)
	if err != nil {
		return nil, err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, nil
	}

	return scanJob(db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM recalculation_jobs WHERE id = ?
	`, id))
}

// TransitionJob moves a job from one status to another, recording errMsg
func (db *DB) TransitionJob(ctx context.Context, id string, from, to JobStatus, errMsg string) error {
	result, err := db.ExecContext(ctx, `
		UPDATE recalculation_jobs SET status = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, to, errMsg, time.Now().UTC(), id, from)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s is not %s", ErrJobConflict, id, from)
	}
	return nil
}

// ReleaseJob returns a processing job to pending at the back of the queue,
// remembering the last candidate it scored
func (db *DB) ReleaseJob(ctx context.Context, id, resumeAfter string) error {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, `
		UPDATE recalculation_jobs
		SET status = ?, error_message = '', resume_after = ?, queued_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, JobPending, resumeAfter, now, now, id, JobProcessing)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s is not %s", ErrJobConflict, id, JobProcessing)
	}
	return nil
}

// ListJobs retrieves jobs with optional filters in claim order
func (db *DB) ListJobs(ctx context.Context, opts JobListOptions) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM recalculation_jobs WHERE 1=1`
	args := []interface{}{}

	if opts.Status != nil {
		query += " AND status = ?"
		args = append(args, *opts.Status)
	}

	query += " ORDER BY queued_at ASC, id ASC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// CountJobs returns the number of jobs in each status
func (db *DB) CountJobs(ctx context.Context) (map[JobStatus]int, error) {
	counts := make(map[JobStatus]int, len(AllJobStatuses))
	for _, s := range AllJobStatuses {
		counts[s] = 0
	}

	rows, err := db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM recalculation_jobs GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status JobStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
