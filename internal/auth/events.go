package auth

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// StateChange is one authentication-state-changed event: UserID is set when a
// user is present, empty when no user remains logged in.
type StateChange struct {
	UserID string
}

// Events broadcasts auth state changes to subscribers. Publishing never
// blocks; a subscriber that stops draining its channel loses events.
type Events struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan StateChange
}

func NewEvents() *Events {
	return &Events{
		subs: make(map[int]chan StateChange),
	}
}

// Subscribe returns a channel of auth state changes and an unsubscribe func,
// safe to call more than once.
func (e *Events) Subscribe() (<-chan StateChange, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	ch := make(chan StateChange, 16)
	e.subs[id] = ch

	unsubscribe := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

func (e *Events) Publish(change StateChange) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, sub := range e.subs {
		select {
		case sub <- change:
		default:
			log.Warnf("auth events: subscriber %d not draining, event dropped", id)
		}
	}
}
