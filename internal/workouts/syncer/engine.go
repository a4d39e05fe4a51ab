// Package syncer migrates local workouts into the remote store on login:
// a one-time, per-session transfer that skips records already present
// remotely and clears the local store afterwards.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/liftlog-app/liftlog/internal/telemetry/metrics"
	"github.com/liftlog-app/liftlog/internal/workouts"
)

//go:generate mockgen -source=engine.go -destination=engine_mocks_test.go -package=syncer_test

type localStore interface {
	List() ([]workouts.Workout, error)
	Clear() error
}

type remoteStore interface {
	ListForUser(ctx context.Context, userID string) ([]workouts.Workout, error)
	Create(ctx context.Context, userID string, workout workouts.Workout) (*workouts.Workout, error)
}

// State is the per-session migration state. Synced is terminal until the
// session ends (logout resets to NotSynced).
type State int32

const (
	StateNotSynced State = iota
	StateSyncing
	StateSynced
)

func (s State) String() string {
	switch s {
	case StateNotSynced:
		return "not-synced"
	case StateSyncing:
		return "syncing"
	case StateSynced:
		return "synced"
	default:
		return "unknown"
	}
}

var (
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrAlreadySynced  = errors.New("already synced this session")
)

type Result struct {
	Synced  int    `json:"synced"`
	Skipped int    `json:"skipped"`
	Message string `json:"message"`
}

type Engine struct {
	local   localStore
	remote  remoteStore
	metrics *metrics.Manager
	state   atomic.Int32
	now     func() time.Time
}

func NewEngine(local localStore, remote remoteStore, metricsManager *metrics.Manager) *Engine {
	return &Engine{
		local:   local,
		remote:  remote,
		metrics: metricsManager,
		now:     time.Now,
	}
}

func (e *Engine) State() State {
	return State(e.state.Load())
}

// Reset rearms the engine for the next session. Called on logout.
func (e *Engine) Reset() {
	e.state.Store(int32(StateNotSynced))
}

// Migrate transfers all local workouts to the remote store for userID, at most
// once per session. Local records duplicating an existing remote record are
// skipped. The local store is cleared unconditionally once the batch has been
// processed, even if individual creates failed; only a failure of the initial
// remote fetch aborts the migration with the local store untouched.
func (e *Engine) Migrate(ctx context.Context, userID string) (Result, error) {
	if !e.state.CompareAndSwap(int32(StateNotSynced), int32(StateSyncing)) {
		if e.State() == StateSyncing {
			return Result{}, ErrSyncInProgress
		}
		return Result{}, ErrAlreadySynced
	}

	defer func(begin time.Time) {
		e.metrics.HistMigrationDuration.Observe(time.Since(begin).Seconds())
	}(time.Now())

	locals, err := e.local.List()
	if err != nil {
		e.state.Store(int32(StateNotSynced))
		return Result{}, fmt.Errorf("read local workouts: %w", err)
	}

	if len(locals) == 0 {
		e.state.Store(int32(StateSynced))
		return Result{Message: "no local workouts found to sync"}, nil
	}

	existing, err := e.remote.ListForUser(ctx, userID)
	if err != nil {
		// nothing has been written yet, rearm so the user can retry
		e.state.Store(int32(StateNotSynced))
		return Result{}, fmt.Errorf("fetch existing remote workouts: %w", err)
	}

	var synced, skipped, failed int
	for _, local := range locals {
		if isDuplicateOfAny(local, existing) {
			skipped++
			continue
		}

		migrated := local
		migrated.ID = "" // remote store assigns its own
		if migrated.CreatedAt.IsZero() {
			migrated.CreatedAt = e.now().UTC()
		}
		migrated.SyncedAt = e.now().UTC()
		migrated.MigratedFromLocal = true

		if _, err := e.remote.Create(ctx, userID, migrated); err != nil {
			// one failed record must not abort the batch
			log.Errorf("migrate workout of %s for user %s: %s", local.Date.Format("2006-01-02"), userID, err)
			failed++
			continue
		}
		synced++
	}

	// deliberate policy: local data is disposable once migration was attempted
	if err := e.local.Clear(); err != nil {
		log.Errorf("clear local workouts after migration: %s", err)
	}

	e.state.Store(int32(StateSynced))
	e.metrics.CounterWorkoutsMigrated.Add(float64(synced))
	e.metrics.CounterDuplicatesSkipped.Add(float64(skipped))

	message := fmt.Sprintf("%d workouts synced, %d skipped due to duplicates", synced, skipped)
	if failed > 0 {
		message = fmt.Sprintf("%s, %d failed", message, failed)
	}
	log.Debugf("migration for user %s done: %s", userID, message)

	return Result{Synced: synced, Skipped: skipped, Message: message}, nil
}

func isDuplicateOfAny(local workouts.Workout, existing []workouts.Workout) bool {
	for _, remote := range existing {
		if workouts.IsDuplicate(local, remote) {
			return true
		}
	}
	return false
}
