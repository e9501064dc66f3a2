package ws

import (
	"encoding/json"
	"time"
)

// Envelope wraps every WS frame, inbound and outbound.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "conversation/join"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

// Outbound event names. These are the contract clients subscribe to.
const (
	EventMessageNew         = "message:new"
	EventMessageRead        = "message:read"
	EventTyping             = "typing"
	EventConversationNew    = "conversation:new"
	EventConversationUpdate = "conversation:update"
)

// ──────────────────────────── Inbound signal DTOs ────────────────────────────

// JoinBody is the body for "conversation/join" and "conversation/leave".
type JoinBody struct {
	ConversationID string `json:"conversation_id"`
}

// TypingBody is the body for "typing".
type TypingBody struct {
	ConversationID string `json:"conversation_id"`
	IsTyping       bool   `json:"is_typing"`
}

// ReadBody is the body for the relay-only "message/read" signal.
type ReadBody struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// Empty ACK body (useful for many handlers).
type AckBody struct{}

// ErrorBody is returned for failures.
type ErrorBody struct {
	Error string `json:"error"`
}

// ──────────────────────────── Outbound event DTOs ────────────────────────────

type MessageNewEvent struct {
	ConversationID string `json:"conversation_id"`
	Message        any    `json:"message"`
}

type MessageReadEvent struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	CompanyID      string `json:"company_id"`
}

type TypingEvent struct {
	ConversationID string `json:"conversation_id"`
	CompanyID      string `json:"company_id"`
	IsTyping       bool   `json:"is_typing"`
}

type ConversationNewEvent struct {
	ConversationID string `json:"conversation_id"`
}

type ConversationUpdateEvent struct {
	ConversationID  string    `json:"conversation_id"`
	LastMessageText string    `json:"last_message_text"`
	LastMessageAt   time.Time `json:"last_message_at"`
}
