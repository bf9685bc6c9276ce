// Package models holds the chat domain records and the projections sent to clients.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"gochat/internal/common"
)

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

func (s MessageStatus) IsValid() bool {
	return s == StatusSent || s == StatusDelivered || s == StatusRead
}

func (s MessageStatus) rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

// Advances reports whether moving from s to next goes forward.
func (s MessageStatus) Advances(next MessageStatus) bool {
	return next.rank() > s.rank()
}

type Attachment struct {
	Kind common.AttachmentKind `bson:"kind" json:"type"`
	URL  string                `bson:"url" json:"url"`
	Name string                `bson:"name" json:"name"`
}

type Reaction struct {
	Emoji  string `bson:"emoji" json:"emoji"`
	UserID string `bson:"user_id" json:"userId"`
}

type Message struct {
	ID                string        `bson:"_id" json:"id"`
	ConversationID    string        `bson:"conversation_id" json:"conversationId"`
	SenderID          string        `bson:"sender_id" json:"senderId"`
	Text              string        `bson:"text" json:"text"`
	Timestamp         time.Time     `bson:"timestamp" json:"timestamp"`
	Status            MessageStatus `bson:"status" json:"status"`
	Attachments       []Attachment  `bson:"attachments" json:"attachments"`
	Edited            bool          `bson:"edited" json:"edited"`
	EditedAt          *time.Time    `bson:"edited_at,omitempty" json:"editedAt,omitempty"`
	Reactions         []Reaction    `bson:"reactions" json:"reactions"`
	Pinned            bool          `bson:"pinned" json:"pinned"`
	PinnedAt          *time.Time    `bson:"pinned_at,omitempty" json:"pinnedAt,omitempty"`
	PinnedBy          string        `bson:"pinned_by,omitempty" json:"pinnedBy,omitempty"`
	Forwarded         bool          `bson:"forwarded" json:"forwarded"`
	OriginalMessageID string        `bson:"original_message_id,omitempty" json:"originalMessageId,omitempty"`
}

// NewID returns a fresh record id in ObjectID hex form.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ToggleReaction adds the (userID, emoji) pair if absent and removes it otherwise.
// It reports whether the reaction is now present.
func (m *Message) ToggleReaction(userID, emoji string) bool {
	for i, r := range m.Reactions {
		if r.UserID == userID && r.Emoji == emoji {
			m.Reactions = append(m.Reactions[:i:i], m.Reactions[i+1:]...)
			return false
		}
	}
	m.Reactions = append(m.Reactions, Reaction{Emoji: emoji, UserID: userID})
	return true
}

// TogglePin flips the pinned state, stamping or clearing pinnedAt and pinnedBy.
func (m *Message) TogglePin(actorID string, at time.Time) {
	if m.Pinned {
		m.Pinned = false
		m.PinnedAt = nil
		m.PinnedBy = ""
		return
	}
	m.Pinned = true
	m.PinnedAt = &at
	m.PinnedBy = actorID
}

// PreviewText is what the conversation list shows for this message.
func (m *Message) PreviewText() string {
	if m.Text != "" {
		return m.Text
	}
	return "Sent an attachment"
}

// Clone returns a deep copy so stores never share slices with callers.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	c.Attachments = append([]Attachment(nil), m.Attachments...)
	c.Reactions = append([]Reaction(nil), m.Reactions...)
	if m.EditedAt != nil {
		t := *m.EditedAt
		c.EditedAt = &t
	}
	if m.PinnedAt != nil {
		t := *m.PinnedAt
		c.PinnedAt = &t
	}
	return &c
}
