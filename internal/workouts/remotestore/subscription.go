package remotestore

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/liftlog-app/liftlog/internal/workouts"
)

// Subscription is a live feed of full snapshots of one user's workouts.
// Snapshots are coalesced: if the consumer lags, it only sees the latest one.
// Unsubscribe is an idempotent no-op after the first call.
type Subscription struct {
	snapshots chan []workouts.Workout
	errs      chan error
	done      chan struct{}
	stopOnce  sync.Once
	stop      func()
}

type fetchFunc func(ctx context.Context) ([]workouts.Workout, error)

func newSubscription(ctx context.Context, changes <-chan struct{}, stopListen func(), fetch fetchFunc) *Subscription {
	sub := &Subscription{
		snapshots: make(chan []workouts.Workout, 1),
		errs:      make(chan error, 1),
		done:      make(chan struct{}),
		stop:      stopListen,
	}
	go sub.run(ctx, changes, fetch)
	return sub
}

// Snapshots delivers the full current state of the user's workouts on every
// change, starting with one initial snapshot.
func (s *Subscription) Snapshots() <-chan []workouts.Workout {
	return s.snapshots
}

// Errors delivers feed failures (e.g. a snapshot re-fetch failing). The feed
// is not torn down on error, the next change triggers a fresh attempt.
func (s *Subscription) Errors() <-chan error {
	return s.errs
}

func (s *Subscription) Unsubscribe() {
	s.stopOnce.Do(func() {
		s.stop()
		close(s.done)
	})
}

func (s *Subscription) run(ctx context.Context, changes <-chan struct{}, fetch fetchFunc) {
	s.refresh(ctx, fetch)
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			s.refresh(ctx, fetch)
		}
	}
}

func (s *Subscription) refresh(ctx context.Context, fetch fetchFunc) {
	snapshot, err := fetch(ctx)
	if err != nil {
		select {
		case s.errs <- err:
		default:
			log.Errorf("workouts subscription error dropped: %s", err)
		}
		return
	}
	s.push(snapshot)
}

// push hands the snapshot to the consumer without ever blocking: a stale
// undelivered snapshot is replaced by the new one.
func (s *Subscription) push(snapshot []workouts.Workout) {
	for {
		select {
		case s.snapshots <- snapshot:
			return
		default:
			select {
			case <-s.snapshots:
			default:
			}
		}
	}
}
