package fanout

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatfanoutgo/internal/services/chat"
	"chatfanoutgo/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishCall struct {
	event   string
	body    any
	groups  []string
	exclude string
}

type pubRecorder struct {
	calls      []publishCall
	failEvents map[string]bool
}

func (p *pubRecorder) Publish(_ context.Context, event string, body any, groups []string, excludeID string) error {
	p.calls = append(p.calls, publishCall{event: event, body: body, groups: groups, exclude: excludeID})
	if p.failEvents[event] {
		return errors.New("boom")
	}
	return nil
}

func sampleMessage() *chat.MessageDTO {
	return &chat.MessageDTO{
		ID:             "m1",
		ConversationID: "c1",
		SenderID:       "co1",
		SenderName:     "Acme",
		Content:        "hello",
		CreatedAt:      time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		ReadBy:         []string{},
	}
}

func TestNotifyMessageCreatedTargetsConversationThenCompanies(t *testing.T) {
	rec := &pubRecorder{}
	co := NewCoordinator(rec)

	co.NotifyMessageCreated(context.Background(), "c1", sampleMessage(), []string{"co1", "co2"})

	require.Len(t, rec.calls, 3)
	assert.Equal(t, ws.EventMessageNew, rec.calls[0].event)
	assert.Equal(t, []string{ws.ConversationGroup("c1")}, rec.calls[0].groups)

	assert.Equal(t, ws.EventConversationUpdate, rec.calls[1].event)
	assert.Equal(t, []string{ws.CompanyGroup("co1")}, rec.calls[1].groups)
	assert.Equal(t, ws.EventConversationUpdate, rec.calls[2].event)
	assert.Equal(t, []string{ws.CompanyGroup("co2")}, rec.calls[2].groups)

	upd, ok := rec.calls[1].body.(ws.ConversationUpdateEvent)
	require.True(t, ok)
	assert.Equal(t, "hello", upd.LastMessageText)

	for _, c := range rec.calls {
		assert.Empty(t, c.exclude, "coordinator events never exclude anyone")
	}
}

func TestNotifyMessageCreatedSwallowsBroadcastFault(t *testing.T) {
	rec := &pubRecorder{failEvents: map[string]bool{ws.EventMessageNew: true}}
	co := NewCoordinator(rec)

	// must not panic, and must still attempt the remaining publishes
	co.NotifyMessageCreated(context.Background(), "c1", sampleMessage(), []string{"co1", "co2"})
	assert.Len(t, rec.calls, 3)
}

func TestNotifyMessageRead(t *testing.T) {
	rec := &pubRecorder{}
	co := NewCoordinator(rec)

	co.NotifyMessageRead(context.Background(), "c1", "m1", "co2")

	require.Len(t, rec.calls, 1)
	assert.Equal(t, ws.EventMessageRead, rec.calls[0].event)
	assert.Equal(t, []string{ws.ConversationGroup("c1")}, rec.calls[0].groups)
	evt, ok := rec.calls[0].body.(ws.MessageReadEvent)
	require.True(t, ok)
	assert.Equal(t, "co2", evt.CompanyID)
}

func TestNotifyConversationCreatedReachesEveryParticipant(t *testing.T) {
	rec := &pubRecorder{}
	co := NewCoordinator(rec)

	co.NotifyConversationCreated(context.Background(), "c1", []string{"co1", "co2", "co3"})

	require.Len(t, rec.calls, 3)
	for i, pid := range []string{"co1", "co2", "co3"} {
		assert.Equal(t, ws.EventConversationNew, rec.calls[i].event)
		assert.Equal(t, []string{ws.CompanyGroup(pid)}, rec.calls[i].groups)
	}
}
