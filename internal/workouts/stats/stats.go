// Package stats computes training statistics over a set of workouts: an
// aggregate summary plus per-exercise personal records.
package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/liftlog-app/liftlog/internal/workouts"
)

type DateRange struct {
	From time.Time `json:"from,omitzero"`
	To   time.Time `json:"to,omitzero"`
}

type Summary struct {
	TotalWorkouts              int       `json:"totalWorkouts"`
	TotalExercises             int       `json:"totalExercises"`
	TotalVolume                float64   `json:"totalVolume"`
	AverageExercisesPerWorkout float64   `json:"averageExercisesPerWorkout"`
	MostFrequentExercise       string    `json:"mostFrequentExercise"`
	DateRange                  DateRange `json:"dateRange"`
}

// PersonalRecord is the best set of one exercise, scored as weight * reps.
// Bodyweight sets score 0, so a weighted set always beats them.
type PersonalRecord struct {
	Exercise string          `json:"exercise"`
	Score    float64         `json:"score"`
	Weight   workouts.Weight `json:"weight"`
	Reps     int             `json:"reps"`
	Date     time.Time       `json:"date"`
}

type Report struct {
	Summary         Summary          `json:"summary"`
	PersonalRecords []PersonalRecord `json:"personalRecords"`
}

// Analyze builds the full report. Exercise names are matched case-insensitively
// with surrounding whitespace ignored; the first spelling seen is reported.
func Analyze(all []workouts.Workout) Report {
	summary := Summary{
		TotalWorkouts: len(all),
	}

	type exerciseAgg struct {
		displayName string
		count       int
		firstSeen   int
		record      PersonalRecord
	}
	byName := make(map[string]*exerciseAgg)

	seen := 0
	for _, workout := range all {
		summary.TotalExercises += len(workout.Exercises)

		date := workout.Date
		if summary.DateRange.From.IsZero() || date.Before(summary.DateRange.From) {
			summary.DateRange.From = date
		}
		if date.After(summary.DateRange.To) {
			summary.DateRange.To = date
		}

		for _, exercise := range workout.Exercises {
			score := exercise.Weight.Volume(exercise.Reps)
			summary.TotalVolume += score

			key := exercise.NormalizedName()
			agg, ok := byName[key]
			if !ok {
				agg = &exerciseAgg{
					displayName: strings.TrimSpace(exercise.Name),
					firstSeen:   seen,
					record: PersonalRecord{
						Exercise: strings.TrimSpace(exercise.Name),
						Score:    score,
						Weight:   exercise.Weight,
						Reps:     exercise.Reps,
						Date:     date,
					},
				}
				byName[key] = agg
			}
			seen++

			agg.count++
			if score > agg.record.Score {
				agg.record.Score = score
				agg.record.Weight = exercise.Weight
				agg.record.Reps = exercise.Reps
				agg.record.Date = date
			}
		}
	}

	if summary.TotalWorkouts > 0 {
		summary.AverageExercisesPerWorkout = float64(summary.TotalExercises) / float64(summary.TotalWorkouts)
	}

	var (
		best    *exerciseAgg
		records []PersonalRecord
	)
	for _, agg := range byName {
		records = append(records, agg.record)
		if best == nil ||
			agg.count > best.count ||
			(agg.count == best.count && agg.firstSeen < best.firstSeen) {
			best = agg
		}
	}
	if best != nil {
		summary.MostFrequentExercise = best.displayName
	}

	sort.Slice(records, func(i, j int) bool {
		return strings.ToLower(records[i].Exercise) < strings.ToLower(records[j].Exercise)
	})

	return Report{
		Summary:         summary,
		PersonalRecords: records,
	}
}
