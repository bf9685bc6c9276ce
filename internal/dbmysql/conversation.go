package dbmysql

import (
	"time"

	"gochat/internal/chat/models"
)

type ConversationRow struct {
	ID              string   `gorm:"primaryKey;size:24"`
	Participants    []string `gorm:"serializer:json;type:json"`
	IsGroup         bool
	GroupName       string  `gorm:"size:255"`
	GroupAvatar     string  `gorm:"size:512"`
	GroupAdmin      string  `gorm:"size:24"`
	DirectKey       *string `gorm:"size:49;uniqueIndex"` // NULL for groups
	LastMessage     string  `gorm:"type:text"`
	LastMessageTime time.Time
	CreatedAt       time.Time
}

func (ConversationRow) TableName() string { return "conversations" }

// ConversationColumns are the columns a membership or metadata update writes.
// last_message and last_message_time only change through UpdatePreview.
var ConversationColumns = []string{
	"participants", "group_name", "group_avatar", "group_admin",
}

func NewConversationRow(c *models.Conversation) *ConversationRow {
	row := &ConversationRow{
		ID:              c.ID,
		Participants:    c.Participants,
		IsGroup:         c.IsGroup,
		GroupName:       c.GroupName,
		GroupAvatar:     c.GroupAvatar,
		GroupAdmin:      c.GroupAdmin,
		LastMessage:     c.LastMessage,
		LastMessageTime: c.LastMessageTime,
		CreatedAt:       c.CreatedAt,
	}
	if c.DirectKey != "" {
		key := c.DirectKey
		row.DirectKey = &key
	}
	return row
}

func (r *ConversationRow) ToModel() *models.Conversation {
	c := &models.Conversation{
		ID:              r.ID,
		Participants:    r.Participants,
		IsGroup:         r.IsGroup,
		GroupName:       r.GroupName,
		GroupAvatar:     r.GroupAvatar,
		GroupAdmin:      r.GroupAdmin,
		LastMessage:     r.LastMessage,
		LastMessageTime: r.LastMessageTime,
		CreatedAt:       r.CreatedAt,
	}
	if r.DirectKey != nil {
		c.DirectKey = *r.DirectKey
	}
	return c
}
