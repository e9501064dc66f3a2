package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const eventsChannel = "chat:events"

// bridgeFrame is the wire form relayed between instances.
type bridgeFrame struct {
	Event   string          `json:"event"`
	Body    json.RawMessage `json:"body"`
	Groups  []string        `json:"groups"`
	Exclude string          `json:"exclude,omitempty"`
}

// RedisBridge fans events out through Redis pub/sub so that every instance's
// hub sees writes accepted by any instance. Connection ids are globally
// unique, so sender exclusion survives the hop.
type RedisBridge struct {
	rdb *redis.Client
	hub *Hub
}

func NewRedisBridge(rdb *redis.Client, hub *Hub) *RedisBridge {
	return &RedisBridge{rdb: rdb, hub: hub}
}

func (b *RedisBridge) Publish(ctx context.Context, event string, body any, groups []string, excludeID string) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(bridgeFrame{
		Event:   event,
		Body:    raw,
		Groups:  groups,
		Exclude: excludeID,
	})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, eventsChannel, frame).Err()
}

// Run replays frames published by any instance (this one included) into the
// local hub. Run must be started once at service boot when the bridge is
// enabled.
func (b *RedisBridge) Run(ctx context.Context) {
	ps := b.rdb.Subscribe(ctx, eventsChannel)
	defer ps.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ps.Channel():
			if !ok { // Redis connection closed.
				return
			}
			var f bridgeFrame
			if err := json.Unmarshal([]byte(m.Payload), &f); err != nil {
				zap.L().Warn("ws.bridge_frame", zap.Error(err))
				continue
			}
			if err := b.hub.Publish(ctx, f.Event, f.Body, f.Groups, f.Exclude); err != nil {
				zap.L().Warn("ws.bridge_replay", zap.Error(err))
			}
		}
	}
}
