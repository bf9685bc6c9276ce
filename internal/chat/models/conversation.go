package models

import (
	"sort"
	"strings"
	"time"
)

type Conversation struct {
	ID              string    `bson:"_id" json:"id"`
	Participants    []string  `bson:"participants" json:"participants"`
	IsGroup         bool      `bson:"is_group" json:"isGroup"`
	GroupName       string    `bson:"group_name,omitempty" json:"groupName,omitempty"`
	GroupAvatar     string    `bson:"group_avatar,omitempty" json:"groupAvatar,omitempty"`
	GroupAdmin      string    `bson:"group_admin,omitempty" json:"groupAdmin,omitempty"`
	DirectKey       string    `bson:"direct_key,omitempty" json:"-"`
	LastMessage     string    `bson:"last_message" json:"lastMessage"`
	LastMessageTime time.Time `bson:"last_message_time" json:"lastMessageTime"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
}

// DirectKey identifies the unordered pair {a, b}.
func DirectKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// AddParticipants is a set union preserving existing order.
func (c *Conversation) AddParticipants(ids []string) {
	for _, id := range ids {
		if id != "" && !c.HasParticipant(id) {
			c.Participants = append(c.Participants, id)
		}
	}
}

// RemoveParticipants is a set difference.
func (c *Conversation) RemoveParticipants(ids []string) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := c.Participants[:0:0]
	for _, p := range c.Participants {
		if _, ok := drop[p]; !ok {
			kept = append(kept, p)
		}
	}
	c.Participants = kept
}

func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	return &cp
}
