package models

import (
	"time"

	"gochat/internal/common"
)

type ReactionView struct {
	Emoji string                `json:"emoji"`
	User  common.UserProjection `json:"user"`
}

// ConversationRef is the conversation summary attached to search results.
type ConversationRef struct {
	ID        string `json:"id"`
	IsGroup   bool   `json:"isGroup"`
	GroupName string `json:"groupName,omitempty"`
}

// MessageView is the full message projection carried by responses and live events.
type MessageView struct {
	ID                string                 `json:"id"`
	ConversationID    string                 `json:"conversationId"`
	Sender            common.UserProjection  `json:"sender"`
	Text              string                 `json:"text"`
	Timestamp         time.Time              `json:"timestamp"`
	Status            MessageStatus          `json:"status"`
	Attachments       []Attachment           `json:"attachments"`
	Edited            bool                   `json:"edited"`
	EditedAt          *time.Time             `json:"editedAt,omitempty"`
	Reactions         []ReactionView         `json:"reactions"`
	Pinned            bool                   `json:"pinned"`
	PinnedAt          *time.Time             `json:"pinnedAt,omitempty"`
	PinnedBy          *common.UserProjection `json:"pinnedBy,omitempty"`
	Forwarded         bool                   `json:"forwarded"`
	OriginalMessageID string                 `json:"originalMessage,omitempty"`
	Conversation      *ConversationRef       `json:"conversation,omitempty"`
}

type ConversationView struct {
	ID              string                  `json:"id"`
	Participants    []common.UserProjection `json:"participants"`
	IsGroup         bool                    `json:"isGroup"`
	GroupName       string                  `json:"groupName,omitempty"`
	GroupAvatar     string                  `json:"groupAvatar,omitempty"`
	GroupAdmin      *common.UserProjection  `json:"groupAdmin,omitempty"`
	LastMessage     string                  `json:"lastMessage"`
	LastMessageTime time.Time               `json:"lastMessageTime"`
	CreatedAt       time.Time               `json:"createdAt"`
}
