package queue

import (
	"context"
	"fmt"

	"github.com/vijay-prabhu/matchcompat/internal/config"
)

// Decision reasons
const (
	ReasonNotMatchReady      = "not_match_ready"
	ReasonAnswerUpdated      = "answer_updated"
	ReasonOnboardingComplete = "onboarding_complete"
	ReasonMatchReady         = "match_ready"
	ReasonAnswerAdded        = "answer_added"
)

// Decision tells the answer writer what to do after saving an answer
type Decision struct {
	Enqueue bool   `json:"enqueue"`
	Force   bool   `json:"force"`
	Inline  bool   `json:"inline"`
	Reason  string `json:"reason"`
}

// AnswerCounter reports how many questions a user has answered
type AnswerCounter interface {
	CountAnswers(ctx context.Context, userID string) (int, error)
}

// Policy decides whether an answer write should enqueue its author
type Policy struct {
	answers    AnswerCounter
	threshold  int
	onboarding map[string]bool
	inline     bool
}

// NewPolicy creates a policy from the scoring config
func NewPolicy(answers AnswerCounter, cfg config.ScoringConfig) *Policy {
	onboarding := make(map[string]bool, len(cfg.OnboardingQuestions))
	for _, q := range cfg.OnboardingQuestions {
		onboarding[q] = true
	}
	return &Policy{
		answers:    answers,
		threshold:  cfg.MatchReadyThreshold,
		onboarding: onboarding,
		inline:     cfg.InlineOnboarding,
	}
}

// Decide is called after the answer has been persisted, so the count
// already includes it.
//
// Updates to an existing answer force a resync once the user is match-ready.
// A new answer that brings the user to exactly the threshold through an
// onboarding question forces an immediate resync, run inline when
// configured. Any other new answer at or past the threshold enqueues
// without force so it batches with the scheduled worker.
func (p *Policy) Decide(ctx context.Context, questionID, userID string, wasNew bool) (Decision, error) {
	count, err := p.answers.CountAnswers(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to count answers: %w", err)
	}

	if count < p.threshold {
		reason := ReasonInsufficientAnswers
		if !wasNew {
			reason = ReasonNotMatchReady
		}
		return Decision{Reason: reason}, nil
	}

	if !wasNew {
		return Decision{Enqueue: true, Force: true, Reason: ReasonAnswerUpdated}, nil
	}

	if count == p.threshold {
		if p.onboarding[questionID] {
			return Decision{Enqueue: true, Force: true, Inline: p.inline, Reason: ReasonOnboardingComplete}, nil
		}
		return Decision{Enqueue: true, Reason: ReasonMatchReady}, nil
	}

	return Decision{Enqueue: true, Reason: ReasonAnswerAdded}, nil
}
