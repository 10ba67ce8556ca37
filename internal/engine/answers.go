package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/queue"
	"github.com/vijay-prabhu/matchcompat/internal/recalc"
	"github.com/vijay-prabhu/matchcompat/internal/scoring"
)

// AnswerOutcome reports what happened after an answer-side write
type AnswerOutcome struct {
	UserID      string               `json:"user_id"`
	QuestionID  string               `json:"question_id"`
	WasNew      bool                 `json:"was_new"`
	Decision    queue.Decision       `json:"decision"`
	Enqueue     *queue.EnqueueResult `json:"enqueue,omitempty"`
	Inline      *recalc.Result       `json:"inline,omitempty"`
	InlineError string               `json:"inline_error,omitempty"`
}

// AddUser registers a new user
func (e *Engine) AddUser(ctx context.Context, username string) (*database.User, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", scoring.ErrInvalidRequest)
	}
	u := &database.User{Username: username}
	if err := e.db.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// SetExcluded includes or excludes a user from matching. The user is
// force-enqueued so their stored pairs follow.
func (e *Engine) SetExcluded(ctx context.Context, ref string, excluded bool) (queue.EnqueueResult, error) {
	u, err := e.ResolveUser(ctx, ref)
	if err != nil {
		return queue.EnqueueResult{}, err
	}
	if err := e.db.SetUserExcluded(ctx, u.ID, excluded); err != nil {
		return queue.EnqueueResult{}, fmt.Errorf("failed to update user: %w", err)
	}
	return e.queue.Enqueue(ctx, u.ID, true)
}

// SubmitAnswer validates and stores an answer, then applies the enqueue
// decision for it
func (e *Engine) SubmitAnswer(ctx context.Context, ref string, a scoring.Answer) (*AnswerOutcome, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	u, err := e.ResolveUser(ctx, ref)
	if err != nil {
		return nil, err
	}

	wasNew, err := e.db.SaveAnswer(ctx, u.ID, a)
	if err != nil {
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}
	return e.OnAnswerWritten(ctx, u.ID, a.QuestionID, wasNew)
}

// RemoveAnswer deletes an answer. It is treated as a change to an
// existing answer.
func (e *Engine) RemoveAnswer(ctx context.Context, ref, questionID string) (*AnswerOutcome, error) {
	u, err := e.ResolveUser(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := e.db.DeleteAnswer(ctx, u.ID, questionID); err != nil {
		return nil, err
	}
	return e.OnAnswerWritten(ctx, u.ID, questionID, false)
}

// SetRequired marks or unmarks a question as required for the user.
// Required marks feed every stored pair, so it is treated as an update.
func (e *Engine) SetRequired(ctx context.Context, ref, questionID string, required bool) (*AnswerOutcome, error) {
	if questionID == "" {
		return nil, fmt.Errorf("%w: question id is required", scoring.ErrInvalidRequest)
	}
	u, err := e.ResolveUser(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := e.db.SetRequired(ctx, u.ID, questionID, required); err != nil {
		return nil, fmt.Errorf("failed to update required questions: %w", err)
	}
	return e.OnAnswerWritten(ctx, u.ID, questionID, false)
}

// OnAnswerWritten is called after an answer has been persisted. It asks
// the policy whether to enqueue, enqueues, and runs the inline path when
// the decision asks for it. An inline failure is recorded on the job and
// in the outcome, not returned.
func (e *Engine) OnAnswerWritten(ctx context.Context, userID, questionID string, wasNew bool) (*AnswerOutcome, error) {
	decision, err := e.policy.Decide(ctx, questionID, userID, wasNew)
	if err != nil {
		return nil, err
	}

	out := &AnswerOutcome{
		UserID:     userID,
		QuestionID: questionID,
		WasNew:     wasNew,
		Decision:   decision,
	}
	if !decision.Enqueue {
		return out, nil
	}

	res, err := e.queue.Enqueue(ctx, userID, decision.Force)
	if err != nil {
		return nil, err
	}
	out.Enqueue = &res

	if decision.Inline {
		inline, err := e.runInline(ctx, userID)
		if err != nil {
			out.InlineError = err.Error()
		}
		out.Inline = inline
	}
	return out, nil
}

// runInline claims the user's pending job and processes it now. It does
// nothing if a worker already holds the job.
func (e *Engine) runInline(ctx context.Context, userID string) (*recalc.Result, error) {
	job, err := e.queue.ClaimUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	if job == nil {
		return nil, nil
	}

	res, runErr := e.recalc.RecalculateAll(ctx, userID, recalc.Options{ResumeAfter: job.ResumeAfter})
	switch {
	case runErr == nil:
		err = e.queue.Complete(ctx, job)
	case errors.Is(runErr, recalc.ErrBudgetExhausted):
		cursor := job.ResumeAfter
		if res != nil {
			cursor = res.Cursor
		}
		err = e.queue.Release(ctx, job, cursor)
	default:
		err = e.queue.Fail(ctx, job, runErr)
	}
	if err != nil && !errors.Is(err, database.ErrJobConflict) {
		e.log.Warn("failed to record inline job outcome", "user_id", userID, "error", err)
	}
	if runErr != nil {
		e.log.Warn("inline recalculation failed", "user_id", userID, "error", runErr)
		return res, runErr
	}
	return res, nil
}
