// Package localstore persists workouts on the device, used while no user is
// logged in. The whole store is one JSON blob under a fixed key in a badger
// database, mirroring how little data it ever holds.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/liftlog-app/liftlog/internal/workouts"
)

const workoutsKey = "liftlog-workouts"

var (
	ErrWorkoutNotFound = errors.New("workout not found")
	ErrWriteFailed     = errors.New("local store write failed")
)

type Store struct {
	db *badger.DB
}

func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory is used in tests and ephemeral deployments.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory local store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// List returns all local workouts, newest first.
func (s *Store) List() ([]workouts.Workout, error) {
	var all []workouts.Workout
	err := s.db.View(func(txn *badger.Txn) error {
		all = s.load(txn)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list local workouts: %w", err)
	}
	workouts.SortByDateDesc(all)
	return all, nil
}

// Create assigns a fresh id, normalizes the date to UTC and persists the workout.
func (s *Store) Create(workout workouts.Workout) (workouts.Workout, error) {
	workout.ID = uuid.NewString()
	workout.Date = workout.Date.UTC()

	err := s.db.Update(func(txn *badger.Txn) error {
		all := s.load(txn)
		all = append(all, workout)
		return s.save(txn, all)
	})
	if err != nil {
		return workouts.Workout{}, err
	}
	return workout, nil
}

func (s *Store) Update(id string, workout workouts.Workout) (workouts.Workout, error) {
	workout.ID = id
	workout.Date = workout.Date.UTC()

	err := s.db.Update(func(txn *badger.Txn) error {
		all := s.load(txn)
		for i := range all {
			if all[i].ID == id {
				all[i] = workout
				return s.save(txn, all)
			}
		}
		return ErrWorkoutNotFound
	})
	if err != nil {
		return workouts.Workout{}, err
	}
	return workout, nil
}

func (s *Store) Delete(id string) (string, error) {
	err := s.db.Update(func(txn *badger.Txn) error {
		all := s.load(txn)
		kept := all[:0]
		for _, w := range all {
			if w.ID != id {
				kept = append(kept, w)
			}
		}
		if len(kept) == len(all) {
			return ErrWorkoutNotFound
		}
		return s.save(txn, kept)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetByID(id string) (workouts.Workout, bool, error) {
	var (
		found   bool
		workout workouts.Workout
	)
	err := s.db.View(func(txn *badger.Txn) error {
		for _, w := range s.load(txn) {
			if w.ID == id {
				workout = w
				found = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return workouts.Workout{}, false, fmt.Errorf("get local workout: %w", err)
	}
	return workout, found, nil
}

// Clear drops all local workouts. Used by the sync engine after migration.
func (s *Store) Clear() error {
	err := s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(workoutsKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: clear: %s", ErrWriteFailed, err)
	}
	return nil
}

// load reads the blob within txn. A missing or corrupt blob is an empty store,
// local data is never worth failing over.
func (s *Store) load(txn *badger.Txn) []workouts.Workout {
	item, err := txn.Get([]byte(workoutsKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		log.Errorf("read local workouts blob: %s", err)
		return nil
	}

	var all []workouts.Workout
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &all)
	})
	if err != nil {
		log.Warnf("corrupt local workouts blob, treating as empty: %s", err)
		return nil
	}
	return all
}

func (s *Store) save(txn *badger.Txn, all []workouts.Workout) error {
	blob, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("%w: marshal: %s", ErrWriteFailed, err)
	}
	if err := txn.Set([]byte(workoutsKey), blob); err != nil {
		return fmt.Errorf("%w: %s", ErrWriteFailed, err)
	}
	return nil
}
