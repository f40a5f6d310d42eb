package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// channel is the single Redis pub/sub channel all instances share. Room
// filtering happens on the subscriber side against the local hub.
const channel = "atrium:events"

// Broadcaster is the fan-out surface services publish through. The hub
// satisfies it for single-instance deployments; the bridge layers Redis
// pub/sub on top for multi-instance ones.
type Broadcaster interface {
	Broadcast(room Room, event Event)
	EmitToUser(userID string, event Event)
}

// envelope is the wire form of a cross-instance event.
type envelope struct {
	Origin string `json:"origin"`
	Room   Room   `json:"room"`
	Event  Event  `json:"event"`
}

// Bridge mirrors hub broadcasts to every other instance through Redis
// pub/sub. Each bridge carries a random origin id and skips messages it
// published itself, so local delivery stays single-shot.
type Bridge struct {
	hub    *Hub
	rdb    *redis.Client
	origin string
	logger *slog.Logger
}

func NewBridge(hub *Hub, rdb *redis.Client, logger *slog.Logger) *Bridge {
	return &Bridge{
		hub:    hub,
		rdb:    rdb,
		origin: uuid.NewString(),
		logger: logger,
	}
}

// Broadcast delivers locally, then publishes for the other instances.
// Publish failures are logged, not returned: local clients already have the
// event and the write that produced it has committed.
func (b *Bridge) Broadcast(room Room, event Event) {
	b.hub.Broadcast(room, event)
	b.publish(room, event)
}

// EmitToUser delivers to the user's room locally and across instances.
func (b *Bridge) EmitToUser(userID string, event Event) {
	b.Broadcast(UserRoom(userID), event)
}

func (b *Bridge) publish(room Room, event Event) {
	payload, err := json.Marshal(envelope{Origin: b.origin, Room: room, Event: event})
	if err != nil {
		b.logger.Error("marshal realtime envelope", "error", err)
		return
	}
	if err := b.rdb.Publish(context.Background(), channel, payload).Err(); err != nil {
		b.logger.Error("publish realtime event", "error", err, "room", string(room))
	}
}

// Run subscribes to the shared channel and replays remote events into the
// local hub until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, channel)
	defer sub.Close()

	// Surface subscription failures before entering the receive loop.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return errors.New("realtime subscription closed")
			}
			b.dispatch(msg.Payload)
		}
	}
}

func (b *Bridge) dispatch(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn("drop malformed realtime envelope", "error", err)
		return
	}
	if env.Origin == b.origin {
		return
	}
	b.hub.Broadcast(env.Room, env.Event)
}
