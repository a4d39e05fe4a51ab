package remotestore

import (
	"context"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const changeChannelPrefix = "liftlog-workouts-changed||"

// ChangeNotifier fans out "something changed for this user" signals over redis
// pub/sub. Payload carries no data, subscribers re-fetch a full snapshot.
type ChangeNotifier struct {
	redisClient *redis.Client
}

func NewChangeNotifier(redisClient *redis.Client) *ChangeNotifier {
	return &ChangeNotifier{
		redisClient: redisClient,
	}
}

// Publish signals a change in the given user's workouts. A failed publish is
// logged and swallowed, the write that triggered it already succeeded.
func (n *ChangeNotifier) Publish(ctx context.Context, userID string) {
	cmd := n.redisClient.Publish(ctx, changeChannelPrefix+userID, "changed")
	if err := cmd.Err(); err != nil {
		log.Errorf("publish workouts change for user %s: %s", userID, err)
	}
}

// Listen returns a channel pulsing on every change to the user's workouts,
// and a stop function. Signals are coalesced, the channel never blocks the
// publisher side.
func (n *ChangeNotifier) Listen(ctx context.Context, userID string) (<-chan struct{}, func()) {
	pubsub := n.redisClient.Subscribe(ctx, changeChannelPrefix+userID)

	signals := make(chan struct{}, 1)
	go func() {
		defer close(signals)
		for range pubsub.Channel() {
			select {
			case signals <- struct{}{}:
			default:
			}
		}
	}()

	stop := func() {
		if err := pubsub.Close(); err != nil {
			log.Warnf("close workouts change listener for user %s: %s", userID, err)
		}
	}
	return signals, stop
}
