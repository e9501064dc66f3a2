package fanout

import (
	"context"

	"chatfanoutgo/internal/services/chat"
	"chatfanoutgo/internal/ws"

	"go.uber.org/zap"
)

// ICoordinator bridges the durable write path to live broadcast. Every entry
// point is invoked only after the corresponding store write has committed
// (write-then-notify). Broadcast is fire-and-forget: a fan-out fault is
// logged and swallowed so a stored write is never reported as failed, and
// missed live events are recovered by clients re-fetching over REST.
type ICoordinator interface {
	NotifyMessageCreated(ctx context.Context, conversationID string, message *chat.MessageDTO, participantIDs []string)
	NotifyMessageRead(ctx context.Context, conversationID, messageID, companyID string)
	NotifyConversationCreated(ctx context.Context, conversationID string, participantIDs []string)
}

type coordinator struct {
	pub ws.Publisher
}

func NewCoordinator(pub ws.Publisher) ICoordinator {
	return &coordinator{pub: pub}
}

func (co *coordinator) NotifyMessageCreated(ctx context.Context, conversationID string, message *chat.MessageDTO, participantIDs []string) {
	err := co.pub.Publish(ctx, ws.EventMessageNew,
		ws.MessageNewEvent{ConversationID: conversationID, Message: message},
		[]string{ws.ConversationGroup(conversationID)},
		"",
	)
	if err != nil {
		zap.L().Error("fanout.message_new",
			zap.String("conversation", conversationID), zap.Error(err))
	}

	// The conversation-list preview changed for every participant, whether
	// or not they are in the conversation room right now.
	for _, pid := range participantIDs {
		err := co.pub.Publish(ctx, ws.EventConversationUpdate,
			ws.ConversationUpdateEvent{
				ConversationID:  conversationID,
				LastMessageText: message.Content,
				LastMessageAt:   message.CreatedAt,
			},
			[]string{ws.CompanyGroup(pid)},
			"",
		)
		if err != nil {
			zap.L().Error("fanout.conversation_update",
				zap.String("conversation", conversationID),
				zap.String("company", pid), zap.Error(err))
		}
	}
}

func (co *coordinator) NotifyMessageRead(ctx context.Context, conversationID, messageID, companyID string) {
	err := co.pub.Publish(ctx, ws.EventMessageRead,
		ws.MessageReadEvent{
			ConversationID: conversationID,
			MessageID:      messageID,
			CompanyID:      companyID,
		},
		[]string{ws.ConversationGroup(conversationID)},
		"",
	)
	if err != nil {
		zap.L().Error("fanout.message_read",
			zap.String("message", messageID), zap.Error(err))
	}
}

func (co *coordinator) NotifyConversationCreated(ctx context.Context, conversationID string, participantIDs []string) {
	for _, pid := range participantIDs {
		err := co.pub.Publish(ctx, ws.EventConversationNew,
			ws.ConversationNewEvent{ConversationID: conversationID},
			[]string{ws.CompanyGroup(pid)},
			"",
		)
		if err != nil {
			zap.L().Error("fanout.conversation_new",
				zap.String("conversation", conversationID),
				zap.String("company", pid), zap.Error(err))
		}
	}
}
