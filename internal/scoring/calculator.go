package scoring

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned when a read asks for conflicting scopes.
var ErrInvalidRequest = errors.New("invalid request")

// Constants are the tunable scoring parameters.
type Constants struct {
	AdjustMagnitude    float64 `json:"adjust_magnitude" toml:"adjust_magnitude"`
	ImportanceExponent float64 `json:"importance_exponent" toml:"importance_exponent"`
	OpenToAllWeight    float64 `json:"open_to_all_weight" toml:"open_to_all_weight"`
}

// DefaultConstants returns the seed values for a fresh install.
func DefaultConstants() Constants {
	return Constants{
		AdjustMagnitude:    5.0,
		ImportanceExponent: 2.0,
		OpenToAllWeight:    0.5,
	}
}

// Validate checks the constants are usable.
func (c Constants) Validate() error {
	var errs []error
	if c.AdjustMagnitude <= 0 {
		errs = append(errs, fmt.Errorf("adjust_magnitude must be positive, got %g", c.AdjustMagnitude))
	}
	if c.ImportanceExponent < 0 {
		errs = append(errs, fmt.Errorf("importance_exponent must not be negative, got %g", c.ImportanceExponent))
	}
	if c.OpenToAllWeight < 0 || c.OpenToAllWeight > 1 {
		errs = append(errs, fmt.Errorf("open_to_all_weight must be within [0, 1], got %g", c.OpenToAllWeight))
	}
	return errors.Join(errs...)
}

// Scope selects which questions a score is computed over.
type Scope string

const (
	ScopeAll             Scope = "all"
	ScopeRequired        Scope = "required"
	ScopeExcludeRequired Scope = "exclude_required"
)

// ReadOptions are the scope flags a reader may pass.
type ReadOptions struct {
	RequiredOnly    bool
	ExcludeRequired bool
}

// Scope resolves the flags, rejecting the contradictory combination.
func (o ReadOptions) Scope() (Scope, error) {
	switch {
	case o.RequiredOnly && o.ExcludeRequired:
		return "", fmt.Errorf("%w: required-only and exclude-required are mutually exclusive", ErrInvalidRequest)
	case o.RequiredOnly:
		return ScopeRequired, nil
	case o.ExcludeRequired:
		return ScopeExcludeRequired, nil
	default:
		return ScopeAll, nil
	}
}

// Result is a directional score over some set of questions.
type Result struct {
	Overall          float64 `json:"overall"`
	CompatibleWithMe float64 `json:"compatible_with_me"`
	ImCompatibleWith float64 `json:"im_compatible_with"`
	MutualCount      int     `json:"mutual_count"`
}

// Calculator turns two answer sets into directional scores. It performs no I/O.
type Calculator struct {
	constants Constants
}

// NewCalculator creates a calculator bound to a snapshot of the constants.
func NewCalculator(c Constants) *Calculator {
	return &Calculator{constants: c}
}

// Constants returns the snapshot this calculator scores with.
func (calc *Calculator) Constants() Constants {
	return calc.constants
}

// Score computes scores over every mutually answered question.
func (calc *Calculator) Score(me, them AnswerSet) (Result, error) {
	return calc.ScoreQuestions(me, them, me.Mutual(them))
}

// ScoreExcluding computes scores over mutual questions not in exclude.
func (calc *Calculator) ScoreExcluding(me, them AnswerSet, exclude QuestionSet) (Result, error) {
	mutual := me.Mutual(them)
	ids := mutual[:0:0]
	for _, id := range mutual {
		if !exclude.Has(id) {
			ids = append(ids, id)
		}
	}
	return calc.ScoreQuestions(me, them, ids)
}

// ScoreQuestions computes scores over the given question IDs, which must be
// answered by both users. IDs should be sorted for reproducible sums.
func (calc *Calculator) ScoreQuestions(me, them AnswerSet, ids []string) (Result, error) {
	t, err := calc.tally(me, them, ids)
	if err != nil {
		return Result{}, err
	}
	return resultOf(t), nil
}

func (calc *Calculator) tally(me, them AnswerSet, ids []string) (Tally, error) {
	var t Tally
	for _, id := range ids {
		mine, ok := me[id]
		if !ok {
			continue
		}
		theirs, ok := them[id]
		if !ok {
			continue
		}
		s, err := ScoreQuestion(inputFor(mine, theirs), calc.constants)
		if err != nil {
			return Tally{}, fmt.Errorf("question %s: %w", id, err)
		}
		t.Add(s)
	}
	return t, nil
}

func resultOf(t Tally) Result {
	pctA, pctB := t.Percentages()
	return Result{
		Overall:          RoundPercent(Overall(pctA, pctB)),
		CompatibleWithMe: RoundPercent(pctA),
		ImCompatibleWith: RoundPercent(pctB),
		MutualCount:      t.Count,
	}
}
