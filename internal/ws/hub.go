package ws

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Publisher is the multicast surface the write path and the signal handlers
// publish through. The in-process Hub implements it directly; RedisBridge
// implements it for multi-instance deployments.
type Publisher interface {
	Publish(ctx context.Context, event string, body any, groups []string, excludeID string) error
}

// Hub delivers an event to every connection currently in the named groups.
// Best-effort only: a recipient whose queue is full or which is mid-close is
// skipped, never waited on. Sequential Publish calls from one caller keep
// their order per recipient because frames are enqueued synchronously.
type Hub struct {
	reg *Registry
}

func NewHub(reg *Registry) *Hub { return &Hub{reg: reg} }

func (h *Hub) Publish(_ context.Context, event string, body any, groups []string, excludeID string) error {
	frame, err := encodeEnvelope(event, body)
	if err != nil {
		return err
	}

	// Snapshot first, enqueue after: no socket work happens under the
	// registry lock, and a conn sitting in several target groups gets the
	// frame once.
	delivered := make(map[*Conn]struct{})
	for _, group := range groups {
		for _, c := range h.reg.MembersOf(group) {
			if c.ID == excludeID {
				continue
			}
			if _, ok := delivered[c]; ok {
				continue
			}
			delivered[c] = struct{}{}
			if !c.enqueue(frame) {
				zap.L().Debug("ws.delivery_skipped",
					zap.String("event", event),
					zap.String("conn", c.ID),
				)
			}
		}
	}
	return nil
}

func encodeEnvelope(event string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Body: raw})
}
