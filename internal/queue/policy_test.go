package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/vijay-prabhu/matchcompat/internal/config"
)

type fixedCounter struct {
	n   int
	err error
}

func (f fixedCounter) CountAnswers(context.Context, string) (int, error) {
	return f.n, f.err
}

func TestPolicyDecide(t *testing.T) {
	cfg := config.ScoringConfig{
		MatchReadyThreshold: 10,
		OnboardingQuestions: []string{"q-final"},
		InlineOnboarding:    true,
	}

	tests := []struct {
		name     string
		question string
		count    int
		wasNew   bool
		expected Decision
	}{
		{
			name:     "new answer below threshold",
			question: "q1",
			count:    5,
			wasNew:   true,
			expected: Decision{Reason: ReasonInsufficientAnswers},
		},
		{
			name:     "update below threshold",
			question: "q1",
			count:    5,
			wasNew:   false,
			expected: Decision{Reason: ReasonNotMatchReady},
		},
		{
			name:     "update when match-ready forces",
			question: "q1",
			count:    12,
			wasNew:   false,
			expected: Decision{Enqueue: true, Force: true, Reason: ReasonAnswerUpdated},
		},
		{
			name:     "onboarding question crossing threshold",
			question: "q-final",
			count:    10,
			wasNew:   true,
			expected: Decision{Enqueue: true, Force: true, Inline: true, Reason: ReasonOnboardingComplete},
		},
		{
			name:     "other question crossing threshold",
			question: "q7",
			count:    10,
			wasNew:   true,
			expected: Decision{Enqueue: true, Reason: ReasonMatchReady},
		},
		{
			name:     "onboarding question past threshold",
			question: "q-final",
			count:    30,
			wasNew:   true,
			expected: Decision{Enqueue: true, Reason: ReasonAnswerAdded},
		},
		{
			name:     "new answer well past onboarding",
			question: "q40",
			count:    40,
			wasNew:   true,
			expected: Decision{Enqueue: true, Reason: ReasonAnswerAdded},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy(fixedCounter{n: tt.count}, cfg)
			got, err := p.Decide(context.Background(), tt.question, "alice", tt.wasNew)
			if err != nil {
				t.Fatalf("Decide failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Decide() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestPolicyInlineDisabled(t *testing.T) {
	cfg := config.ScoringConfig{MatchReadyThreshold: 3, OnboardingQuestions: []string{"q3"}}
	p := NewPolicy(fixedCounter{n: 3}, cfg)

	got, err := p.Decide(context.Background(), "q3", "alice", true)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if !got.Force || got.Inline {
		t.Errorf("expected forced enqueue without inline run, got %+v", got)
	}
}

func TestPolicyCountError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPolicy(fixedCounter{err: boom}, config.ScoringConfig{MatchReadyThreshold: 1})

	if _, err := p.Decide(context.Background(), "q1", "alice", true); !errors.Is(err, boom) {
		t.Errorf("expected wrapped count error, got %v", err)
	}
}
