// Package facade is the single entry point for workout data access. It routes
// every operation to the local store while no user is logged in, and to the
// remote store once a user is present, running the local-to-remote migration
// in between. Callers never know which store served them.
package facade

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/liftlog-app/liftlog/internal/auth"
	"github.com/liftlog-app/liftlog/internal/workouts"
	"github.com/liftlog-app/liftlog/internal/workouts/localstore"
	"github.com/liftlog-app/liftlog/internal/workouts/remotestore"
	"github.com/liftlog-app/liftlog/internal/workouts/syncer"
)

//go:generate mockgen -source=service.go -destination=service_mocks_test.go -package=facade_test

var (
	ErrWorkoutNotFound  = errors.New("workout not found")
	ErrPermissionDenied = errors.New("workout access denied")
	ErrNotLoggedIn      = errors.New("not logged in")
)

type localStore interface {
	List() ([]workouts.Workout, error)
	Create(workout workouts.Workout) (workouts.Workout, error)
	Update(id string, workout workouts.Workout) (workouts.Workout, error)
	Delete(id string) (string, error)
	GetByID(id string) (workouts.Workout, bool, error)
}

type remoteStore interface {
	Create(ctx context.Context, userID string, workout workouts.Workout) (*workouts.Workout, error)
	Update(ctx context.Context, userID, id string, workout workouts.Workout) (*workouts.Workout, error)
	Delete(ctx context.Context, userID, id string) error
	GetByID(ctx context.Context, userID, id string) (*workouts.Workout, error)
	Subscribe(ctx context.Context, userID string) Subscription
}

type syncEngine interface {
	Migrate(ctx context.Context, userID string) (syncer.Result, error)
	State() syncer.State
	Reset()
}

// Subscription is the live remote feed the service consumes after login.
type Subscription interface {
	Snapshots() <-chan []workouts.Workout
	Errors() <-chan error
	Unsubscribe()
}

type Service struct {
	local  localStore
	remote remoteStore
	engine syncEngine

	changes           <-chan auth.StateChange
	unsubscribeEvents func()

	mu         sync.RWMutex
	userID     string
	snapshot   []workouts.Workout
	sub        Subscription
	subStop    chan struct{}
	lastResult *syncer.Result
	lastErr    error
}

func NewService(
	local localStore,
	remote remoteStore,
	engine syncEngine,
	events *auth.Events,
) *Service {
	// subscribed right away so no event published between construction and
	// Run is lost
	changes, unsubscribe := events.Subscribe()
	return &Service{
		local:             local,
		remote:            remote,
		engine:            engine,
		changes:           changes,
		unsubscribeEvents: unsubscribe,
	}
}

// Run consumes the auth event stream until ctx is done. A single goroutine
// handles all transitions, so migrate-before-subscribe ordering needs no
// additional locking.
func (s *Service) Run(ctx context.Context) {
	defer s.unsubscribeEvents()

	for {
		select {
		case <-ctx.Done():
			s.detach()
			return
		case change, ok := <-s.changes:
			if !ok {
				s.detach()
				return
			}
			if change.UserID == "" {
				s.handleLogout()
			} else {
				s.handleLogin(ctx, change.UserID)
			}
		}
	}
}

// Authenticated reports whether the service currently serves a logged in user.
func (s *Service) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID != ""
}

// List returns all workouts, newest first. Logged in, it serves the latest
// snapshot pushed by the remote feed; logged out, it reads the local store.
func (s *Service) List(_ context.Context) ([]workouts.Workout, error) {
	s.mu.RLock()
	if s.userID != "" {
		snapshot := s.snapshot
		s.mu.RUnlock()
		return snapshot, nil
	}
	s.mu.RUnlock()

	return s.local.List()
}

func (s *Service) Create(ctx context.Context, workout workouts.Workout) (workouts.Workout, error) {
	userID, loggedIn := s.currentUser()
	if !loggedIn {
		return s.local.Create(workout)
	}

	created, err := s.remote.Create(ctx, userID, workout)
	if err != nil {
		return workouts.Workout{}, err
	}
	return *created, nil
}

func (s *Service) Update(ctx context.Context, id string, workout workouts.Workout) (workouts.Workout, error) {
	userID, loggedIn := s.currentUser()
	if !loggedIn {
		updated, err := s.local.Update(id, workout)
		return updated, mapStoreErr(err)
	}

	updated, err := s.remote.Update(ctx, userID, id, workout)
	if err != nil {
		return workouts.Workout{}, mapStoreErr(err)
	}
	return *updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	userID, loggedIn := s.currentUser()
	if !loggedIn {
		_, err := s.local.Delete(id)
		return mapStoreErr(err)
	}

	return mapStoreErr(s.remote.Delete(ctx, userID, id))
}

func (s *Service) GetByID(ctx context.Context, id string) (workouts.Workout, error) {
	userID, loggedIn := s.currentUser()
	if !loggedIn {
		workout, found, err := s.local.GetByID(id)
		if err != nil {
			return workouts.Workout{}, err
		}
		if !found {
			return workouts.Workout{}, ErrWorkoutNotFound
		}
		return workout, nil
	}

	workout, err := s.remote.GetByID(ctx, userID, id)
	if err != nil {
		return workouts.Workout{}, mapStoreErr(err)
	}
	return *workout, nil
}

// Sync triggers the migration by hand, the retry path after a failed login
// migration. Only valid while logged in.
func (s *Service) Sync(ctx context.Context) (syncer.Result, error) {
	userID, loggedIn := s.currentUser()
	if !loggedIn {
		return syncer.Result{}, ErrNotLoggedIn
	}

	result, err := s.engine.Migrate(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.lastResult = &result
		s.lastErr = nil
		return result, nil
	}
	if !errors.Is(err, syncer.ErrSyncInProgress) && !errors.Is(err, syncer.ErrAlreadySynced) {
		s.lastErr = err
	}
	return syncer.Result{}, err
}

type SyncStatus struct {
	State      string         `json:"state"`
	LoggedIn   bool           `json:"loggedIn"`
	LastResult *syncer.Result `json:"lastResult,omitempty"`
	LastError  string         `json:"lastError,omitempty"`
}

// Status reports the sync session state plus the retained last result and
// error. The error sticks around until the next login or manual sync.
func (s *Service) Status() SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SyncStatus{
		State:      s.engine.State().String(),
		LoggedIn:   s.userID != "",
		LastResult: s.lastResult,
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	return status
}

func (s *Service) currentUser() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.userID != ""
}

func (s *Service) handleLogin(ctx context.Context, userID string) {
	s.mu.Lock()
	if s.userID == userID && s.sub != nil {
		// another session of the same user, already attached
		s.mu.Unlock()
		return
	}
	attached := s.sub != nil
	s.mu.Unlock()

	// a different user took over while a feed was attached, drop the old
	// feed and sync session before anything runs for the new user
	if attached {
		s.detach()
		s.engine.Reset()
	}

	s.mu.Lock()
	s.userID = userID
	s.lastErr = nil
	s.lastResult = nil
	s.mu.Unlock()

	// migration runs to completion before the remote feed attaches, so the
	// first snapshot already contains the migrated records
	result, err := s.engine.Migrate(ctx, userID)
	s.mu.Lock()
	switch {
	case err == nil:
		s.lastResult = &result
		log.Infof("login migration for user %s: %s", userID, result.Message)
	case errors.Is(err, syncer.ErrAlreadySynced):
		// nothing to do
	default:
		s.lastErr = err
		log.Errorf("login migration for user %s: %s", userID, err)
	}
	s.mu.Unlock()

	sub := s.remote.Subscribe(ctx, userID)
	stop := make(chan struct{})

	s.mu.Lock()
	s.sub = sub
	s.subStop = stop
	s.mu.Unlock()

	go s.consume(sub, stop)
}

func (s *Service) handleLogout() {
	s.detach()
	s.engine.Reset()
}

// detach drops the remote feed and reverts to local delegation.
func (s *Service) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		s.sub.Unsubscribe()
		close(s.subStop)
		s.sub = nil
		s.subStop = nil
	}
	s.userID = ""
	s.snapshot = nil
	s.lastResult = nil
	s.lastErr = nil
}

func (s *Service) consume(sub Subscription, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case snapshot := <-sub.Snapshots():
			s.mu.Lock()
			s.snapshot = snapshot
			s.mu.Unlock()
		case err := <-sub.Errors():
			s.mu.Lock()
			s.lastErr = err
			s.mu.Unlock()
			log.Errorf("workouts feed: %s", err)
		}
	}
}

// mapStoreErr folds the two stores' sentinels into the facade's, so callers
// handle one error set regardless of the backing store.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, localstore.ErrWorkoutNotFound), errors.Is(err, remotestore.ErrWorkoutNotFound):
		return ErrWorkoutNotFound
	case errors.Is(err, remotestore.ErrPermissionDenied):
		return ErrPermissionDenied
	default:
		return err
	}
}
