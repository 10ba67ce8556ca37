package scoring

import "fmt"

// Party is one side of a pair: what they answered and what they require.
type Party struct {
	Answers  AnswerSet
	Required QuestionSet
}

// Bundle is every stored figure for a pair, oriented from "my" side.
type Bundle struct {
	Overall          float64 `json:"overall"`
	CompatibleWithMe float64 `json:"compatible_with_me"`
	ImCompatibleWith float64 `json:"im_compatible_with"`
	MutualCount      int     `json:"mutual_count"`

	RequiredOverall          float64 `json:"required_overall"`
	RequiredCompatibleWithMe float64 `json:"required_compatible_with_me"`
	RequiredImCompatibleWith float64 `json:"required_im_compatible_with"`
	RequiredMutualCount      int     `json:"required_mutual_count"`

	// TheirRequiredCompatibility is how well I fit the other user's required
	// questions, counting the ones I skipped as zero.
	TheirRequiredCompatibility float64 `json:"their_required_compatibility"`
	// MyRequiredCompatibility is the same figure from the other side.
	MyRequiredCompatibility float64 `json:"my_required_compatibility"`

	// MyCompleteness is the share of their required questions I answered.
	MyCompleteness float64 `json:"my_completeness"`
	// TheirCompleteness is the share of my required questions they answered.
	TheirCompleteness float64 `json:"their_completeness"`
}

// Base returns the unrestricted result.
func (b Bundle) Base() Result {
	return Result{
		Overall:          b.Overall,
		CompatibleWithMe: b.CompatibleWithMe,
		ImCompatibleWith: b.ImCompatibleWith,
		MutualCount:      b.MutualCount,
	}
}

// Required returns the required-question result.
func (b Bundle) Required() Result {
	return Result{
		Overall:          b.RequiredOverall,
		CompatibleWithMe: b.RequiredCompatibleWithMe,
		ImCompatibleWith: b.RequiredImCompatibleWith,
		MutualCount:      b.RequiredMutualCount,
	}
}

// RequiredCalculator layers required-question scoring on a Calculator.
//
// A user who has declared no required questions is scored as if every
// mutual question were required, so two users without declarations get
// required figures equal to the unrestricted ones and completeness 1.
// Completeness is reported alongside the percentages and never scales them.
type RequiredCalculator struct {
	calc *Calculator
}

// NewRequiredCalculator wraps calc.
func NewRequiredCalculator(calc *Calculator) *RequiredCalculator {
	return &RequiredCalculator{calc: calc}
}

// Evaluate computes the full bundle for me against them.
func (r *RequiredCalculator) Evaluate(me, them Party) (Bundle, error) {
	mutual := me.Answers.Mutual(them.Answers)

	baseTally, err := r.calc.tally(me.Answers, them.Answers, mutual)
	if err != nil {
		return Bundle{}, err
	}
	base := resultOf(baseTally)

	b := Bundle{
		Overall:          base.Overall,
		CompatibleWithMe: base.CompatibleWithMe,
		ImCompatibleWith: base.ImCompatibleWith,
		MutualCount:      base.MutualCount,
	}

	if len(me.Required) == 0 && len(them.Required) == 0 {
		b.RequiredOverall = base.Overall
		b.RequiredCompatibleWithMe = base.CompatibleWithMe
		b.RequiredImCompatibleWith = base.ImCompatibleWith
		b.RequiredMutualCount = base.MutualCount
		b.TheirRequiredCompatibility = base.ImCompatibleWith
		b.MyRequiredCompatibility = base.CompatibleWithMe
		b.MyCompleteness = 1
		b.TheirCompleteness = 1
		return b, nil
	}

	mine := restrict(mutual, me.Required)
	theirs := restrict(mutual, them.Required)

	mineTally, err := r.calc.tally(me.Answers, them.Answers, mine)
	if err != nil {
		return Bundle{}, err
	}
	theirsTally, err := r.calc.tally(me.Answers, them.Answers, theirs)
	if err != nil {
		return Bundle{}, err
	}

	mineA, _ := mineTally.Percentages()
	_, theirsB := theirsTally.Percentages()

	b.RequiredCompatibleWithMe = RoundPercent(mineA)
	b.RequiredImCompatibleWith = RoundPercent(theirsB)
	b.RequiredOverall = RoundPercent(requiredOverall(mineTally, theirsTally))
	b.RequiredMutualCount = unionCount(mine, theirs)

	theirFit, err := r.fit(them, me.Answers, mutual)
	if err != nil {
		return Bundle{}, err
	}
	myFit, err := r.fit(me, them.Answers, mutual)
	if err != nil {
		return Bundle{}, err
	}
	b.TheirRequiredCompatibility = RoundPercent(theirFit)
	b.MyRequiredCompatibility = RoundPercent(myFit)

	b.MyCompleteness = RoundRatio(completeness(them.Required, me.Answers))
	b.TheirCompleteness = RoundRatio(completeness(me.Required, them.Answers))

	return b, nil
}

// fit scores how well candidate matches requirer's wants over requirer's
// required questions. Questions the candidate skipped earn nothing but
// still count toward the maximum; questions the requirer never answered
// are ignored.
func (r *RequiredCalculator) fit(requirer Party, candidate AnswerSet, mutual []string) (float64, error) {
	ids := requirer.Required.Sorted()
	if len(requirer.Required) == 0 {
		ids = mutual
	}

	c := r.calc.constants
	var t Tally
	for _, id := range ids {
		want, ok := requirer.Answers[id]
		if !ok {
			continue
		}
		got, ok := candidate[id]
		if ok {
			s, err := ScoreQuestion(inputFor(want, got), c)
			if err != nil {
				return 0, fmt.Errorf("question %s: %w", id, err)
			}
			t.Add(s)
			continue
		}
		if want.LookingForOpenToAll || want.LookingForValue == OpenValue {
			t.Add(QuestionScore{MaxA: c.AdjustMagnitude})
			continue
		}
		f, err := ImportanceFactor(want.LookingForImportance, c.ImportanceExponent)
		if err != nil {
			return 0, fmt.Errorf("question %s: %w", id, err)
		}
		t.Add(QuestionScore{MaxA: c.AdjustMagnitude * f})
	}
	pct, _ := t.Percentages()
	return pct, nil
}

// requiredOverall averages the overall of each restricted tally that holds
// at least one question, or returns 0 when neither does.
func requiredOverall(tallies ...Tally) float64 {
	var sum float64
	n := 0
	for _, t := range tallies {
		if t.Count == 0 {
			continue
		}
		sum += Overall(t.Percentages())
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// restrict keeps the mutual IDs in required; an empty required set keeps all.
func restrict(mutual []string, required QuestionSet) []string {
	if len(required) == 0 {
		return mutual
	}
	ids := make([]string, 0, len(required))
	for _, id := range mutual {
		if required.Has(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func unionCount(a, b []string) int {
	seen := NewQuestionSet(a...)
	for _, id := range b {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// completeness is the share of required answered by answers, clamped to [0, 1].
func completeness(required QuestionSet, answers AnswerSet) float64 {
	if len(required) == 0 {
		return 1
	}
	answered := 0
	for id := range required {
		if _, ok := answers[id]; ok {
			answered++
		}
	}
	ratio := float64(answered) / float64(len(required))
	if ratio > 1 {
		return 1
	}
	return ratio
}
