package workouts

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidWorkout = errors.New("invalid workout")

// Workout is a single training session. The ID is opaque: a random uuid for
// records living in the local store, a server-assigned id for remote records.
// A local id is not preserved when the record is migrated to the remote store.
type Workout struct {
	ID         string     `json:"id"`
	Date       time.Time  `json:"date"`
	Bodyweight float64    `json:"bodyweight"`
	Exercises  []Exercise `json:"exercises"`

	// provenance, set by whichever store wrote the record last
	CreatedAt         time.Time `json:"createdAt,omitzero"`
	UpdatedAt         time.Time `json:"updatedAt,omitzero"`
	SyncedAt          time.Time `json:"syncedAt,omitzero"`
	MigratedFromLocal bool      `json:"migratedFromLocal,omitempty"`
}

type Exercise struct {
	Name   string `json:"name"`
	Weight Weight `json:"weight"`
	Reps   int    `json:"reps"`
	Notes  string `json:"notes,omitempty"`
}

// NormalizedName is the identity key used for stats and duplicate detection.
func (e Exercise) NormalizedName() string {
	return strings.ToLower(strings.TrimSpace(e.Name))
}

// Weight is either a load in kilos or the bodyweight-only sentinel.
// On the wire it is a JSON number, or the string "BW" for bodyweight.
type Weight struct {
	Kilos      float64
	Bodyweight bool
}

func WeightKilos(kilos float64) Weight {
	return Weight{Kilos: kilos}
}

func WeightBodyweight() Weight {
	return Weight{Bodyweight: true}
}

func (w Weight) Equal(other Weight) bool {
	if w.Bodyweight || other.Bodyweight {
		return w.Bodyweight == other.Bodyweight
	}
	return w.Kilos == other.Kilos
}

// Volume is the score contribution of a set: kilos * reps, 0 for bodyweight.
func (w Weight) Volume(reps int) float64 {
	if w.Bodyweight {
		return 0
	}
	return w.Kilos * float64(reps)
}

func (w Weight) String() string {
	if w.Bodyweight {
		return "BW"
	}
	return strconv.FormatFloat(w.Kilos, 'f', -1, 64)
}

func (w Weight) MarshalJSON() ([]byte, error) {
	if w.Bodyweight {
		return []byte(`"BW"`), nil
	}
	return json.Marshal(w.Kilos)
}

func (w *Weight) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if strings.EqualFold(strings.TrimSpace(s), "BW") {
			*w = Weight{Bodyweight: true}
			return nil
		}
		// tolerate numeric strings coming from imported data
		kilos, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("invalid weight value %q", s)
		}
		*w = Weight{Kilos: kilos}
		return nil
	}

	var kilos float64
	if err := json.Unmarshal(data, &kilos); err != nil {
		return fmt.Errorf("invalid weight value: %s", data)
	}
	*w = Weight{Kilos: kilos}
	return nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
}

// ParseDate canonicalizes a user-provided workout date to a UTC timestamp.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid workout date: %q", s)
}

func (w Workout) Validate() error {
	if w.Date.IsZero() {
		return fmt.Errorf("%w: date missing or invalid", ErrInvalidWorkout)
	}
	if w.Bodyweight < 0 {
		return fmt.Errorf("%w: bodyweight cannot be negative", ErrInvalidWorkout)
	}
	for i, e := range w.Exercises {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("%w: exercise %d has no name", ErrInvalidWorkout, i)
		}
		if e.Reps <= 0 {
			return fmt.Errorf("%w: exercise %d has non-positive reps", ErrInvalidWorkout, i)
		}
	}
	return nil
}

// SortByDateDesc orders workouts newest first, the order every list operation returns.
func SortByDateDesc(ws []Workout) {
	sort.SliceStable(ws, func(i, j int) bool {
		return ws[i].Date.After(ws[j].Date)
	})
}
