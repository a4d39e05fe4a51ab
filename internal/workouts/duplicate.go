package workouts

import (
	"sort"
	"time"
)

// IsDuplicate reports whether two workouts record the same training session.
// Duplicates have the same calendar day (UTC), the same number of exercises,
// and pairwise equal exercises after both lists are sorted by normalized name:
// equal name (case-insensitive, trimmed), equal weight (numeric equality, or
// both bodyweight), equal reps. Notes, ids and provenance fields are ignored.
// Exercise names that collide after trim/casefold compare equal on purpose,
// the normalized name is the identity key.
func IsDuplicate(a, b Workout) bool {
	dayA := a.Date.UTC().Truncate(24 * time.Hour)
	dayB := b.Date.UTC().Truncate(24 * time.Hour)
	if !dayA.Equal(dayB) {
		return false
	}

	if len(a.Exercises) != len(b.Exercises) {
		return false
	}

	exA := sortedByName(a.Exercises)
	exB := sortedByName(b.Exercises)
	for i := range exA {
		if exA[i].NormalizedName() != exB[i].NormalizedName() {
			return false
		}
		if !exA[i].Weight.Equal(exB[i].Weight) {
			return false
		}
		if exA[i].Reps != exB[i].Reps {
			return false
		}
	}

	return true
}

func sortedByName(exercises []Exercise) []Exercise {
	sorted := make([]Exercise, len(exercises))
	copy(sorted, exercises)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].NormalizedName() < sorted[j].NormalizedName()
	})
	return sorted
}
