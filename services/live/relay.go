package livesvc

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
)

// Relay fans live frames out to the other API instances over a Redis channel.
type Relay struct {
	client  *redis.Client
	channel string
	origin  string
	logger  core.Logger
}

type envelope struct {
	Origin string          `json:"origin"`
	UserID string          `json:"user_id"`
	Frame  json.RawMessage `json:"frame"`
}

func NewRelay(client *redis.Client, channel string, logger core.Logger) *Relay {
	return &Relay{client: client, channel: channel, origin: uuid.New().String(), logger: logger}
}

func (r *Relay) Publish(ctx context.Context, userID string, frame []byte) error {
	data, err := json.Marshal(envelope{Origin: r.origin, UserID: userID, Frame: frame})
	if err != nil {
		return errors.Wrap(err, "encoding relay envelope")
	}
	return errors.Wrap(r.client.Publish(ctx, r.channel, data).Err(), "publishing live frame")
}

func (r *Relay) presenceKey(userID string) string {
	return r.channel + ":presence:" + userID
}

// Join counts one more connection of userID on some instance.
func (r *Relay) Join(ctx context.Context, userID string) error {
	return errors.Wrap(r.client.Incr(ctx, r.presenceKey(userID)).Err(), "joining live presence")
}

// Leave undoes a Join. Counters are never deleted: a concurrent Join must not be lost.
func (r *Relay) Leave(ctx context.Context, userID string) error {
	return errors.Wrap(r.client.Decr(ctx, r.presenceKey(userID)).Err(), "leaving live presence")
}

// Count returns the connections of userID across all instances.
func (r *Relay) Count(ctx context.Context, userID string) (int64, error) {
	n, err := r.client.Get(ctx, r.presenceKey(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, errors.Wrap(err, "reading live presence")
}

// Subscribe hands every frame published by another instance to deliver, until ctx is done.
func (r *Relay) Subscribe(ctx context.Context, deliver func(userID string, frame []byte)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrap(err, "subscribing to live channel")
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			userID, frame, ok := r.decode(msg.Payload)
			if ok {
				deliver(userID, frame)
			}
		}
	}
}

// decode unwraps an envelope, ignoring our own publications.
func (r *Relay) decode(payload string) (string, []byte, bool) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.logger.Warn("invalid relay envelope", err)
		return "", nil, false
	}
	if env.Origin == r.origin || env.UserID == "" {
		return "", nil, false
	}
	return env.UserID, env.Frame, true
}
