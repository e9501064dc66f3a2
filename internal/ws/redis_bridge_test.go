package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisBridgePublishFramesEvent(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	bridge := NewRedisBridge(rdb, NewHub(NewRegistry()))

	body := TypingEvent{ConversationID: "c1", CompanyID: "co1", IsTyping: true}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	frame, err := json.Marshal(bridgeFrame{
		Event:   EventTyping,
		Body:    raw,
		Groups:  []string{ConversationGroup("c1")},
		Exclude: "conn-1",
	})
	require.NoError(t, err)

	mock.ExpectPublish(eventsChannel, frame).SetVal(1)

	err = bridge.Publish(context.Background(), EventTyping, body,
		[]string{ConversationGroup("c1")}, "conn-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBridgeFrameReplaysIntoHub(t *testing.T) {
	reg := NewRegistry()
	hub := NewHub(reg)
	sender := newConn(nil, "co1", 8)
	other := newConn(nil, "co2", 8)
	reg.Add(ConversationGroup("c1"), sender)
	reg.Add(ConversationGroup("c1"), other)

	// what another instance would have published
	raw, err := json.Marshal(TypingEvent{ConversationID: "c1", CompanyID: "co1", IsTyping: true})
	require.NoError(t, err)
	payload, err := json.Marshal(bridgeFrame{
		Event:   EventTyping,
		Body:    raw,
		Groups:  []string{ConversationGroup("c1")},
		Exclude: sender.ID,
	})
	require.NoError(t, err)

	var f bridgeFrame
	require.NoError(t, json.Unmarshal(payload, &f))
	require.NoError(t, hub.Publish(context.Background(), f.Event, f.Body, f.Groups, f.Exclude))

	// exclusion survives the hop because conn ids are globally unique
	assert.Empty(t, sender.send)
	env := recvFrame(t, other)
	assert.Equal(t, EventTyping, env.Event)
	var evt TypingEvent
	require.NoError(t, json.Unmarshal(env.Body, &evt))
	assert.Equal(t, "co1", evt.CompanyID)
}
