package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDispatchTypedHandler(t *testing.T) {
	r := NewRouter()
	Register(r, "conversation/join", func(_ context.Context, cc *ConnContext, req JoinBody) (JoinBody, error) {
		return req, nil
	})

	res, err := r.dispatch(context.Background(), &ConnContext{},
		Envelope{Event: "conversation/join", Body: json.RawMessage(`{"conversation_id":"c1"}`)})
	require.NoError(t, err)
	assert.Equal(t, JoinBody{ConversationID: "c1"}, res)
}

func TestRouterDispatchUnknownEvent(t *testing.T) {
	r := NewRouter()
	_, err := r.dispatch(context.Background(), &ConnContext{}, Envelope{Event: "nope"})
	require.EqualError(t, err, "unknown_event")
}

func TestRouterDispatchMalformedBody(t *testing.T) {
	r := NewRouter()
	Register(r, "typing", func(_ context.Context, cc *ConnContext, req TypingBody) (AckBody, error) {
		return AckBody{}, nil
	})

	_, err := r.dispatch(context.Background(), &ConnContext{},
		Envelope{Event: "typing", Body: json.RawMessage(`{"conversation_id":5}`)})
	require.Error(t, err)
}

func TestRouterHandlerErrorPropagates(t *testing.T) {
	r := NewRouter()
	boom := errors.New("invalid_conversation_id")
	Register(r, "conversation/join", func(_ context.Context, cc *ConnContext, req JoinBody) (AckBody, error) {
		return AckBody{}, boom
	})

	_, err := r.dispatch(context.Background(), &ConnContext{}, Envelope{Event: "conversation/join"})
	require.ErrorIs(t, err, boom)
}
