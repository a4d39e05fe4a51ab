// Package remotestore is the per-user workout collection in postgres, with a
// redis-backed change feed. All operations are scoped by an opaque user id and
// never expose another user's records.
package remotestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/liftlog-app/liftlog/internal/telemetry/tracing"
	"github.com/liftlog-app/liftlog/internal/workouts"
)

var (
	ErrWorkoutNotFound  = errors.New("workout not found")
	ErrPermissionDenied = errors.New("workout access denied")
)

type Repo struct {
	db       *pgxpool.Pool
	notifier *ChangeNotifier
	now      func() time.Time
}

func NewRepo(db *pgxpool.Pool, notifier *ChangeNotifier) *Repo {
	return &Repo{
		db:       db,
		notifier: notifier,
		now:      time.Now,
	}
}

// ListForUser returns all workouts of the user, newest first.
func (r *Repo) ListForUser(ctx context.Context, userID string) (_ []workouts.Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	span.SetAttributes(attribute.String("user.id", userID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				id, user_id, workout_date, bodyweight, exercises,
				created_at, updated_at, synced_at, migrated_from_local
			FROM workout
			WHERE user_id = $1
			ORDER BY workout_date DESC;`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2workouts(rows)
}

// Create stores a new workout for the user, assigning a fresh server id and
// stamping createdAt unless the caller carries one over (migration does).
func (r *Repo) Create(ctx context.Context, userID string, workout workouts.Workout) (_ *workouts.Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workout.ID = uuid.NewString()
	workout.Date = workout.Date.UTC()
	if workout.CreatedAt.IsZero() {
		workout.CreatedAt = r.now().UTC()
	}

	exercisesJson, err := json.Marshal(workout.Exercises)
	if err != nil {
		return nil, fmt.Errorf("marshal exercises: %w", err)
	}

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO workout
				(id, user_id, workout_date, bodyweight, exercises, created_at, synced_at, migrated_from_local)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
		workout.ID, userID, workout.Date, workout.Bodyweight, exercisesJson,
		workout.CreatedAt, nullableTime(workout.SyncedAt), workout.MigratedFromLocal,
	)
	if err != nil {
		return nil, err
	}

	r.notifier.Publish(ctx, userID)
	return &workout, nil
}

// Update rewrites an existing workout and stamps updatedAt. The owner must
// match, otherwise ErrWorkoutNotFound / ErrPermissionDenied.
func (r *Repo) Update(ctx context.Context, userID, id string, workout workouts.Workout) (_ *workouts.Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workout.ID = id
	workout.Date = workout.Date.UTC()
	workout.UpdatedAt = r.now().UTC()

	exercisesJson, err := json.Marshal(workout.Exercises)
	if err != nil {
		return nil, fmt.Errorf("marshal exercises: %w", err)
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout
			SET workout_date = $1, bodyweight = $2, exercises = $3, updated_at = $4
			WHERE id = $5 AND user_id = $6;`,
		workout.Date, workout.Bodyweight, exercisesJson, workout.UpdatedAt, id, userID,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, r.notFoundOrDenied(ctx, id)
	}

	r.notifier.Publish(ctx, userID)
	return &workout, nil
}

func (r *Repo) Delete(ctx context.Context, userID, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.notFoundOrDenied(ctx, id)
	}

	r.notifier.Publish(ctx, userID)
	return nil
}

// GetByID returns the workout, enforcing owner match.
func (r *Repo) GetByID(ctx context.Context, userID, id string) (_ *workouts.Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				id, user_id, workout_date, bodyweight, exercises,
				created_at, updated_at, synced_at, migrated_from_local
			FROM workout
			WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	found, err := r.rows2workoutsOwned(rows)
	if err != nil {
		return nil, err
	}
	if len(found) != 1 {
		return nil, ErrWorkoutNotFound
	}
	if found[0].ownerID != userID {
		return nil, ErrPermissionDenied
	}

	workout := found[0].Workout
	return &workout, nil
}

// Subscribe starts a live feed of full snapshots of the user's workouts. The
// first snapshot arrives right away, a new one after every change, until
// Unsubscribe is called.
func (r *Repo) Subscribe(ctx context.Context, userID string) *Subscription {
	changes, stopListen := r.notifier.Listen(ctx, userID)
	return newSubscription(ctx, changes, stopListen, func(ctx context.Context) ([]workouts.Workout, error) {
		return r.ListForUser(ctx, userID)
	})
}

// notFoundOrDenied picks the error kind after a 0-rows mutation: the record
// either does not exist, or belongs to someone else.
func (r *Repo) notFoundOrDenied(ctx context.Context, id string) error {
	var exists int
	err := r.db.QueryRow(ctx, `SELECT 1 FROM workout WHERE id = $1;`, id).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrWorkoutNotFound
	}
	if err != nil {
		return err
	}
	return ErrPermissionDenied
}

type ownedWorkout struct {
	workouts.Workout
	ownerID string
}

func (r *Repo) rows2workouts(rows pgx.Rows) ([]workouts.Workout, error) {
	owned, err := r.rows2workoutsOwned(rows)
	if err != nil {
		return nil, err
	}
	all := make([]workouts.Workout, 0, len(owned))
	for _, ow := range owned {
		all = append(all, ow.Workout)
	}
	return all, nil
}

func (r *Repo) rows2workoutsOwned(rows pgx.Rows) ([]ownedWorkout, error) {
	var all []ownedWorkout
	for rows.Next() {
		var (
			w                   workouts.Workout
			ownerID             string
			exercisesBytes      []byte
			updatedAt, syncedAt *time.Time
		)
		if err := rows.Scan(
			&w.ID, &ownerID, &w.Date, &w.Bodyweight, &exercisesBytes,
			&w.CreatedAt, &updatedAt, &syncedAt, &w.MigratedFromLocal,
		); err != nil {
			return nil, err
		}

		if len(exercisesBytes) > 0 {
			if err := json.Unmarshal(exercisesBytes, &w.Exercises); err != nil {
				return nil, fmt.Errorf("unmarshal exercises for workout %s: %w", w.ID, err)
			}
		}
		if updatedAt != nil {
			w.UpdatedAt = *updatedAt
		}
		if syncedAt != nil {
			w.SyncedAt = *syncedAt
		}

		all = append(all, ownedWorkout{Workout: w, ownerID: ownerID})
	}
	return all, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
