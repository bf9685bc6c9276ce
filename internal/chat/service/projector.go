package service

import (
	"context"
	"fmt"

	"gochat/internal/chat/models"
	"gochat/internal/common"
)

// Projector turns stored records, which only carry user ids, into the views
// handed to clients. Every call resolves identities once.
type Projector struct {
	identities common.IdentityResolver
}

func NewProjector(identities common.IdentityResolver) *Projector {
	return &Projector{identities: identities}
}

func (p *Projector) resolve(ctx context.Context, ids map[string]struct{}) (map[string]common.UserProjection, error) {
	if len(ids) == 0 {
		return map[string]common.UserProjection{}, nil
	}
	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	users, err := p.identities.ResolveUsers(ctx, list)
	if err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}
	return users, nil
}

func lookup(users map[string]common.UserProjection, id string) common.UserProjection {
	if u, ok := users[id]; ok {
		return u
	}
	return common.UnknownUser(id)
}

func messageUserIDs(ids map[string]struct{}, m *models.Message) {
	ids[m.SenderID] = struct{}{}
	for _, r := range m.Reactions {
		ids[r.UserID] = struct{}{}
	}
	if m.PinnedBy != "" {
		ids[m.PinnedBy] = struct{}{}
	}
}

// Messages projects msgs in order. refs, when non-nil, attaches the
// conversation reference of each message.
func (p *Projector) Messages(ctx context.Context, msgs []*models.Message, refs map[string]*models.ConversationRef) ([]models.MessageView, error) {
	ids := make(map[string]struct{})
	for _, m := range msgs {
		messageUserIDs(ids, m)
	}
	users, err := p.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		view := buildMessageView(m, users)
		if refs != nil {
			view.Conversation = refs[m.ConversationID]
		}
		out = append(out, view)
	}
	return out, nil
}

func (p *Projector) Message(ctx context.Context, msg *models.Message) (*models.MessageView, error) {
	views, err := p.Messages(ctx, []*models.Message{msg}, nil)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func buildMessageView(m *models.Message, users map[string]common.UserProjection) models.MessageView {
	attachments := make([]models.Attachment, len(m.Attachments))
	copy(attachments, m.Attachments)

	reactions := make([]models.ReactionView, 0, len(m.Reactions))
	for _, r := range m.Reactions {
		reactions = append(reactions, models.ReactionView{Emoji: r.Emoji, User: lookup(users, r.UserID)})
	}

	view := models.MessageView{
		ID:                m.ID,
		ConversationID:    m.ConversationID,
		Sender:            lookup(users, m.SenderID),
		Text:              m.Text,
		Timestamp:         m.Timestamp,
		Status:            m.Status,
		Attachments:       attachments,
		Edited:            m.Edited,
		EditedAt:          m.EditedAt,
		Reactions:         reactions,
		Pinned:            m.Pinned,
		PinnedAt:          m.PinnedAt,
		Forwarded:         m.Forwarded,
		OriginalMessageID: m.OriginalMessageID,
	}
	if m.PinnedBy != "" {
		by := lookup(users, m.PinnedBy)
		view.PinnedBy = &by
	}
	return view
}

func (p *Projector) Conversations(ctx context.Context, convs []*models.Conversation) ([]models.ConversationView, error) {
	ids := make(map[string]struct{})
	for _, c := range convs {
		for _, id := range c.Participants {
			ids[id] = struct{}{}
		}
		if c.GroupAdmin != "" {
			ids[c.GroupAdmin] = struct{}{}
		}
	}
	users, err := p.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.ConversationView, 0, len(convs))
	for _, c := range convs {
		participants := make([]common.UserProjection, 0, len(c.Participants))
		for _, id := range c.Participants {
			participants = append(participants, lookup(users, id))
		}
		view := models.ConversationView{
			ID:              c.ID,
			Participants:    participants,
			IsGroup:         c.IsGroup,
			GroupName:       c.GroupName,
			GroupAvatar:     c.GroupAvatar,
			LastMessage:     c.LastMessage,
			LastMessageTime: c.LastMessageTime,
			CreatedAt:       c.CreatedAt,
		}
		if c.GroupAdmin != "" {
			admin := lookup(users, c.GroupAdmin)
			view.GroupAdmin = &admin
		}
		out = append(out, view)
	}
	return out, nil
}

func (p *Projector) Conversation(ctx context.Context, conv *models.Conversation) (*models.ConversationView, error) {
	views, err := p.Conversations(ctx, []*models.Conversation{conv})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func conversationRef(c *models.Conversation) *models.ConversationRef {
	return &models.ConversationRef{ID: c.ID, IsGroup: c.IsGroup, GroupName: c.GroupName}
}
