// Package transfer moves workout data in and out of the app: CSV and JSON
// export in the formats the app always used, and JSON import back in.
package transfer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/liftlog-app/liftlog/internal/workouts"
	"github.com/liftlog-app/liftlog/internal/workouts/stats"
)

var csvHeader = []string{"Date", "Bodyweight (kg)", "Exercise", "Weight", "Reps", "Notes"}

// Export is the JSON export envelope.
type Export struct {
	ExportDate    time.Time          `json:"exportDate"`
	TotalWorkouts int                `json:"totalWorkouts"`
	DateRange     stats.DateRange    `json:"dateRange"`
	Workouts      []workouts.Workout `json:"workouts"`
}

func BuildExport(all []workouts.Workout, exportedAt time.Time) Export {
	export := Export{
		ExportDate:    exportedAt.UTC(),
		TotalWorkouts: len(all),
		Workouts:      all,
	}
	if export.Workouts == nil {
		export.Workouts = []workouts.Workout{}
	}

	for _, workout := range all {
		if export.DateRange.From.IsZero() || workout.Date.Before(export.DateRange.From) {
			export.DateRange.From = workout.Date
		}
		if workout.Date.After(export.DateRange.To) {
			export.DateRange.To = workout.Date
		}
	}
	return export
}

// WriteCSV writes one row per exercise, the workout date and bodyweight
// repeated on each. Bodyweight-sentinel sets carry "Bodyweight" in the weight
// column. The csv writer takes care of quoting notes.
func WriteCSV(w io.Writer, all []workouts.Workout) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, workout := range all {
		date := workout.Date.Format("2006-01-02")
		bodyweight := ""
		if workout.Bodyweight > 0 {
			bodyweight = formatFloat(workout.Bodyweight)
		}

		for _, exercise := range workout.Exercises {
			weight := "Bodyweight"
			if !exercise.Weight.Bodyweight {
				weight = formatFloat(exercise.Weight.Kilos)
			}

			row := []string{
				date,
				bodyweight,
				exercise.Name,
				weight,
				strconv.Itoa(exercise.Reps),
				exercise.Notes,
			}
			if err := csvWriter.Write(row); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// ParseImport accepts either a bare JSON array of workouts or the export
// envelope, and validates every record before anything is accepted.
func ParseImport(data []byte) ([]workouts.Workout, error) {
	var all []workouts.Workout
	if err := json.Unmarshal(data, &all); err != nil {
		var envelope Export
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("invalid import payload: %w", err)
		}
		all = envelope.Workouts
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("import payload contains no workouts")
	}

	for i, workout := range all {
		if err := workout.Validate(); err != nil {
			return nil, fmt.Errorf("workout %d: %w", i, err)
		}
	}
	return all, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
