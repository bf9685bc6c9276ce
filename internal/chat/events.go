// Package chat defines the live events the chat engine emits and the seam
// they leave the engine through.
package chat

const (
	EventMessageNew     = "message:new"
	EventMessageUpdated = "message:updated"
	EventMessageDeleted = "message:deleted"
	// EventError is only ever sent to the session whose request failed.
	EventError = "error"
)

// Client-originated events on the live channel.
const (
	EventJoinConversation  = "conversation:join"
	EventLeaveConversation = "conversation:leave"
	EventSendMessage       = "message:send"
)

// Envelope is the frame written to live sessions.
type Envelope struct {
	Event          string      `json:"event"`
	ConversationID string      `json:"conversationId,omitempty"`
	Payload        interface{} `json:"payload"`
}

// Publisher fans an event out to every session joined to a conversation.
type Publisher interface {
	Publish(conversationID, event string, payload interface{})
}

// RoomEvictor drops the live sessions of users who lost access to a conversation.
type RoomEvictor interface {
	EvictUsers(conversationID string, userIDs ...string) int
}

// DeletedPayload is the whole payload of EventMessageDeleted.
type DeletedPayload struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
}

// ErrorPayload is the payload of EventError.
type ErrorPayload struct {
	Message string `json:"message"`
}
