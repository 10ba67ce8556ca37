package scoring

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidAnswer wraps validation failures at the answer ingestion boundary.
var ErrInvalidAnswer = errors.New("invalid answer")

var validate = validator.New()

// Answer is one user's response to one question.
type Answer struct {
	QuestionID           string `json:"question_id" toml:"question_id" validate:"required"`
	MeValue              int    `json:"me_value" toml:"me_value" validate:"min=1,max=6"`
	MeOpenToAll          bool   `json:"me_open_to_all" toml:"me_open_to_all"`
	MeImportance         int    `json:"me_importance" toml:"me_importance" validate:"min=1,max=5"`
	LookingForValue      int    `json:"looking_for_value" toml:"looking_for_value" validate:"min=1,max=6"`
	LookingForOpenToAll  bool   `json:"looking_for_open_to_all" toml:"looking_for_open_to_all"`
	LookingForImportance int    `json:"looking_for_importance" toml:"looking_for_importance" validate:"min=1,max=5"`
}

// Validate rejects out-of-range values before they reach storage.
func (a Answer) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}
	return nil
}

// SelfValue is the value the user gave about themselves, with an open
// self-description normalized to OpenValue.
func (a Answer) SelfValue() int {
	if a.MeOpenToAll {
		return OpenValue
	}
	return a.MeValue
}

// AnswerSet maps question ID to answer for a single user.
type AnswerSet map[string]Answer

// NewAnswerSet indexes answers by question ID.
func NewAnswerSet(answers []Answer) AnswerSet {
	set := make(AnswerSet, len(answers))
	for _, a := range answers {
		set[a.QuestionID] = a
	}
	return set
}

// Mutual returns the sorted IDs of questions answered in both sets.
func (s AnswerSet) Mutual(other AnswerSet) []string {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	ids := make([]string, 0, len(small))
	for id := range small {
		if _, ok := large[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// QuestionSet is a set of question IDs.
type QuestionSet map[string]struct{}

// NewQuestionSet builds a set from IDs.
func NewQuestionSet(ids ...string) QuestionSet {
	set := make(QuestionSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s QuestionSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s QuestionSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// inputFor pairs my answer with theirs on the same question.
func inputFor(me, them Answer) QuestionInput {
	return QuestionInput{
		MyWant:          me.LookingForValue,
		MyImportance:    me.LookingForImportance,
		TheirSelf:       them.SelfValue(),
		MySelf:          me.SelfValue(),
		TheirWant:       them.LookingForValue,
		TheirImportance: them.LookingForImportance,
		MyOpenToAll:     me.LookingForOpenToAll,
		TheirOpenToAll:  them.LookingForOpenToAll,
	}
}
