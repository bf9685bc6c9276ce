package dbmysql

import (
	"strings"
	"time"

	"gochat/internal/chat/models"
)

type MessageRow struct {
	ID                string              `gorm:"primaryKey;size:24"`
	ConversationID    string              `gorm:"size:24;index:idx_messages_conversation_ts,priority:1"`
	SenderID          string              `gorm:"size:24;index"`
	Text              string              `gorm:"type:text"`
	Timestamp         time.Time           `gorm:"index:idx_messages_conversation_ts,priority:2"`
	Status            string              `gorm:"size:16"`
	Attachments       []models.Attachment `gorm:"serializer:json;type:json"`
	AttachmentNames   string              `gorm:"type:text"` // lowercased names, newline separated, for search
	Edited            bool
	EditedAt          *time.Time
	Reactions         []models.Reaction `gorm:"serializer:json;type:json"`
	Pinned            bool              `gorm:"index"`
	PinnedAt          *time.Time
	PinnedBy          string `gorm:"size:24"`
	Forwarded         bool
	OriginalMessageID string `gorm:"size:24"`
}

func (MessageRow) TableName() string { return "messages" }

// MessageColumns are the columns rewritten by a full-row update.
var MessageColumns = []string{
	"conversation_id", "sender_id", "text", "timestamp", "status", "attachments", "attachment_names",
	"edited", "edited_at", "reactions", "pinned", "pinned_at", "pinned_by", "forwarded", "original_message_id",
}

func NewMessageRow(m *models.Message) *MessageRow {
	names := make([]string, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		names = append(names, strings.ToLower(a.Name))
	}
	return &MessageRow{
		ID:                m.ID,
		ConversationID:    m.ConversationID,
		SenderID:          m.SenderID,
		Text:              m.Text,
		Timestamp:         m.Timestamp,
		Status:            string(m.Status),
		Attachments:       m.Attachments,
		AttachmentNames:   strings.Join(names, "\n"),
		Edited:            m.Edited,
		EditedAt:          m.EditedAt,
		Reactions:         m.Reactions,
		Pinned:            m.Pinned,
		PinnedAt:          m.PinnedAt,
		PinnedBy:          m.PinnedBy,
		Forwarded:         m.Forwarded,
		OriginalMessageID: m.OriginalMessageID,
	}
}

func (r *MessageRow) ToModel() *models.Message {
	return &models.Message{
		ID:                r.ID,
		ConversationID:    r.ConversationID,
		SenderID:          r.SenderID,
		Text:              r.Text,
		Timestamp:         r.Timestamp,
		Status:            models.MessageStatus(r.Status),
		Attachments:       r.Attachments,
		Edited:            r.Edited,
		EditedAt:          r.EditedAt,
		Reactions:         r.Reactions,
		Pinned:            r.Pinned,
		PinnedAt:          r.PinnedAt,
		PinnedBy:          r.PinnedBy,
		Forwarded:         r.Forwarded,
		OriginalMessageID: r.OriginalMessageID,
	}
}
