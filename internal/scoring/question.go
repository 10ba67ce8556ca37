package scoring

import (
	"errors"
	"fmt"
	"math"
)

// OpenValue is the answer value meaning "any value is acceptable".
const OpenValue = 6

// ErrInvalidImportance is returned for importance values outside 1..5.
var ErrInvalidImportance = errors.New("importance must be between 1 and 5")

// ImportanceFactor maps an importance level to its weight.
func ImportanceFactor(importance int, exponent float64) (float64, error) {
	switch importance {
	case 1:
		return 0, nil
	case 2:
		return 0.5, nil
	case 3:
		return 1, nil
	case 4, 5:
		return 1 + math.Pow(float64(importance-3), exponent), nil
	default:
		return 0, fmt.Errorf("%w: got %d", ErrInvalidImportance, importance)
	}
}

// QuestionInput holds both users' answers to one mutual question, seen
// from "my" side.
type QuestionInput struct {
	MyWant          int
	MyImportance    int
	TheirSelf       int
	MySelf          int
	TheirWant       int
	TheirImportance int
	MyOpenToAll     bool
	TheirOpenToAll  bool
}

// QuestionScore is the weighted contribution of one question to both directions.
type QuestionScore struct {
	MA   float64
	MaxA float64
	MB   float64
	MaxB float64
}

// ScoreQuestion scores a single mutual question.
//
// Direction A measures how well the other user matches what I want.
// Direction B measures how well I match what the other user wants.
// An open answer on either side of a direction short-circuits it to a
// fixed partial credit of adjust*openToAllWeight out of adjust.
func ScoreQuestion(in QuestionInput, c Constants) (QuestionScore, error) {
	var s QuestionScore

	if in.MyOpenToAll || in.MyWant == OpenValue || in.TheirSelf == OpenValue {
		s.MA = c.AdjustMagnitude * c.OpenToAllWeight
		s.MaxA = c.AdjustMagnitude
	} else {
		f, err := ImportanceFactor(in.MyImportance, c.ImportanceExponent)
		if err != nil {
			return QuestionScore{}, err
		}
		s.MA, s.MaxA = weighted(in.MyWant, in.TheirSelf, f, c.AdjustMagnitude)
	}

	if in.TheirOpenToAll || in.TheirWant == OpenValue || in.MySelf == OpenValue {
		s.MB = c.AdjustMagnitude * c.OpenToAllWeight
		s.MaxB = c.AdjustMagnitude
	} else {
		f, err := ImportanceFactor(in.TheirImportance, c.ImportanceExponent)
		if err != nil {
			return QuestionScore{}, err
		}
		s.MB, s.MaxB = weighted(in.MySelf, in.TheirWant, f, c.AdjustMagnitude)
	}

	return s, nil
}

func weighted(want, got int, factor, adjust float64) (float64, float64) {
	delta := math.Abs(float64(want - got))
	return math.Max(0, (adjust-delta)*factor), adjust * factor
}

// Tally accumulates question scores. Numerators and denominators are summed
// independently so importance-1 questions never divide by zero.
type Tally struct {
	MA    float64
	MaxA  float64
	MB    float64
	MaxB  float64
	Count int
}

// Add folds one question into the tally.
func (t *Tally) Add(s QuestionScore) {
	t.MA += s.MA
	t.MaxA += s.MaxA
	t.MB += s.MB
	t.MaxB += s.MaxB
	t.Count++
}

// Percentages returns both directional percentages in [0, 100].
func (t Tally) Percentages() (pctA, pctB float64) {
	if t.MaxA > 0 {
		pctA = 100 * t.MA / t.MaxA
	}
	if t.MaxB > 0 {
		pctB = 100 * t.MB / t.MaxB
	}
	return pctA, pctB
}

// Overall is the geometric mean of the two directions, or 0 unless both are positive.
func Overall(pctA, pctB float64) float64 {
	if pctA > 0 && pctB > 0 {
		return math.Sqrt(pctA * pctB)
	}
	return 0
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// RoundPercent rounds a percentage to storage precision.
func RoundPercent(v float64) float64 { return round(v, 2) }

// RoundRatio rounds a completeness ratio to storage precision.
func RoundRatio(v float64) float64 { return round(v, 3) }
