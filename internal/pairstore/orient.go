package pairstore

import (
	"time"

	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/scoring"
)

// reverse flips a bundle to the other user's point of view.
func reverse(b scoring.Bundle) scoring.Bundle {
	b.CompatibleWithMe, b.ImCompatibleWith = b.ImCompatibleWith, b.CompatibleWithMe
	b.RequiredCompatibleWithMe, b.RequiredImCompatibleWith = b.RequiredImCompatibleWith, b.RequiredCompatibleWithMe
	b.TheirRequiredCompatibility, b.MyRequiredCompatibility = b.MyRequiredCompatibility, b.TheirRequiredCompatibility
	b.MyCompleteness, b.TheirCompleteness = b.TheirCompleteness, b.MyCompleteness
	return b
}

// rowFor builds the stored row for a bundle computed from slot1's side.
func rowFor(slot1, slot2 string, b scoring.Bundle, at time.Time) database.Compatibility {
	return database.Compatibility{
		Slot1ID:                    slot1,
		Slot2ID:                    slot2,
		Overall:                    b.Overall,
		CompatibleWithMe:           b.CompatibleWithMe,
		ImCompatibleWith:           b.ImCompatibleWith,
		MutualQuestionCount:        b.MutualCount,
		RequiredOverall:            b.RequiredOverall,
		RequiredCompatibleWithMe:   b.RequiredCompatibleWithMe,
		RequiredImCompatibleWith:   b.RequiredImCompatibleWith,
		TheirRequiredCompatibility: b.TheirRequiredCompatibility,
		MyRequiredCompatibility:    b.MyRequiredCompatibility,
		RequiredMutualCount:        b.RequiredMutualCount,
		Slot1RequiredCompleteness:  b.MyCompleteness,
		Slot2RequiredCompleteness:  b.TheirCompleteness,
		LastCalculatedAt:           at,
	}
}

// rowFrom builds the stored row for a bundle computed from user's side,
// keeping whichever orientation the pair already has.
func rowFrom(user, other string, b scoring.Bundle, existing *database.Compatibility, at time.Time) (database.Compatibility, bool) {
	if existing != nil && existing.Slot1ID == other {
		row := rowFor(other, user, reverse(b), at)
		row.ID = existing.ID
		return row, true
	}
	row := rowFor(user, other, b, at)
	if existing != nil {
		row.ID = existing.ID
	}
	return row, false
}

// bundleFor reads a stored row from requester's side.
func bundleFor(row *database.Compatibility, requester string) scoring.Bundle {
	b := scoring.Bundle{
		Overall:                    row.Overall,
		CompatibleWithMe:           row.CompatibleWithMe,
		ImCompatibleWith:           row.ImCompatibleWith,
		MutualCount:                row.MutualQuestionCount,
		RequiredOverall:            row.RequiredOverall,
		RequiredCompatibleWithMe:   row.RequiredCompatibleWithMe,
		RequiredImCompatibleWith:   row.RequiredImCompatibleWith,
		TheirRequiredCompatibility: row.TheirRequiredCompatibility,
		MyRequiredCompatibility:    row.MyRequiredCompatibility,
		RequiredMutualCount:        row.RequiredMutualCount,
		MyCompleteness:             row.Slot1RequiredCompleteness,
		TheirCompleteness:          row.Slot2RequiredCompleteness,
	}
	if row.Slot1ID != requester {
		return reverse(b)
	}
	return b
}

// other returns the counterpart of user in row.
func other(row *database.Compatibility, user string) string {
	if row.Slot1ID == user {
		return row.Slot2ID
	}
	return row.Slot1ID
}
