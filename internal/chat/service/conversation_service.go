package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gochat/internal/chat"
	"gochat/internal/chat/guard"
	"gochat/internal/chat/models"
	"gochat/internal/chat/repository"
	"gochat/internal/common"
)

type GroupInput struct {
	Name         string   `json:"groupName"`
	Participants []string `json:"participants"`
	Avatar       string   `json:"groupAvatar,omitempty"`
}

// GroupMetaInput updates only the fields that are set.
type GroupMetaInput struct {
	Name   *string `json:"groupName,omitempty"`
	Avatar *string `json:"groupAvatar,omitempty"`
}

type MembershipInput struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

// ConversationService owns conversation records: direct pairs, groups and
// the preview shown in conversation lists.
type ConversationService interface {
	Get(ctx context.Context, conversationID string) (*models.Conversation, error)
	FindOrCreateDirect(ctx context.Context, userA, userB string) (*models.Conversation, bool, error)
	CreateGroup(ctx context.Context, creatorID string, in GroupInput) (*models.Conversation, error)
	UpdateGroupMeta(ctx context.Context, conversationID, actorID string, in GroupMetaInput) (*models.Conversation, error)
	UpdateMembership(ctx context.Context, conversationID, actorID string, in MembershipInput) (*models.Conversation, error)
	RefreshPreview(ctx context.Context, conversationID, text string, at time.Time) error
}

type conversationService struct {
	convs      repository.ConversationRepository
	identities common.IdentityResolver
	guard      *guard.Guard
	rooms      chat.RoomEvictor
	log        zerolog.Logger
	now        func() time.Time
}

func NewConversationService(
	convs repository.ConversationRepository,
	identities common.IdentityResolver,
	g *guard.Guard,
	rooms chat.RoomEvictor,
	log zerolog.Logger,
) ConversationService {
	return &conversationService{
		convs:      convs,
		identities: identities,
		guard:      g,
		rooms:      rooms,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *conversationService) Get(ctx context.Context, conversationID string) (*models.Conversation, error) {
	if conversationID == "" {
		return nil, common.ValidationError("conversation id is required")
	}
	return s.convs.GetByID(ctx, conversationID)
}

func (s *conversationService) FindOrCreateDirect(ctx context.Context, userA, userB string) (*models.Conversation, bool, error) {
	if userA == "" || userB == "" {
		return nil, false, common.ValidationError("participant id is required")
	}
	if userA == userB {
		return nil, false, common.ValidationError("cannot start a conversation with yourself")
	}

	existing, err := s.convs.FindDirect(ctx, userA, userB)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	if err := s.requireUsers(ctx, []string{userB}); err != nil {
		return nil, false, err
	}

	now := s.now()
	conv := &models.Conversation{
		ID:              models.NewID(),
		Participants:    []string{userA, userB},
		DirectKey:       models.DirectKey(userA, userB),
		LastMessageTime: now,
		CreatedAt:       now,
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		if errors.Is(err, common.ErrConflict) {
			// lost the race to a concurrent insert for the same pair
			existing, rerr := s.convs.FindDirect(ctx, userA, userB)
			if rerr != nil {
				return nil, false, rerr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	mutations.WithLabelValues("create_direct").Inc()
	s.log.Info().Str("conversation_id", conv.ID).Msg("direct conversation created")
	return conv, true, nil
}

func (s *conversationService) CreateGroup(ctx context.Context, creatorID string, in GroupInput) (*models.Conversation, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, common.ValidationError("group name is required")
	}

	invited := distinct(in.Participants, creatorID)
	if len(invited) < 2 {
		return nil, common.ValidationError("a group needs at least 2 other participants")
	}
	if err := s.requireUsers(ctx, invited); err != nil {
		return nil, err
	}

	now := s.now()
	conv := &models.Conversation{
		ID:              models.NewID(),
		Participants:    append([]string{creatorID}, invited...),
		IsGroup:         true,
		GroupName:       name,
		GroupAvatar:     in.Avatar,
		GroupAdmin:      creatorID,
		LastMessageTime: now,
		CreatedAt:       now,
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		return nil, err
	}

	mutations.WithLabelValues("create_group").Inc()
	s.log.Info().Str("conversation_id", conv.ID).Int("participants", len(conv.Participants)).Msg("group created")
	return conv, nil
}

func (s *conversationService) UpdateGroupMeta(ctx context.Context, conversationID, actorID string, in GroupMetaInput) (*models.Conversation, error) {
	conv, err := s.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireGroupAdmin(conv, actorID); err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, common.ValidationError("group name cannot be empty")
		}
		conv.GroupName = name
	}
	if in.Avatar != nil {
		conv.GroupAvatar = *in.Avatar
	}

	if err := s.convs.Update(ctx, conv); err != nil {
		return nil, err
	}
	mutations.WithLabelValues("update_group").Inc()
	return conv, nil
}

func (s *conversationService) UpdateMembership(ctx context.Context, conversationID, actorID string, in MembershipInput) (*models.Conversation, error) {
	conv, err := s.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireGroupAdmin(conv, actorID); err != nil {
		return nil, err
	}
	if len(in.Add) == 0 && len(in.Remove) == 0 {
		return nil, common.ValidationError("nothing to add or remove")
	}
	if err := s.guard.CheckRemoval(conv, in.Remove); err != nil {
		return nil, err
	}

	add := distinct(in.Add, "")
	if err := s.requireUsers(ctx, add); err != nil {
		return nil, err
	}

	conv.AddParticipants(add)
	conv.RemoveParticipants(in.Remove)

	if err := s.convs.Update(ctx, conv); err != nil {
		return nil, err
	}
	mutations.WithLabelValues("update_membership").Inc()
	if s.rooms != nil && len(in.Remove) > 0 {
		s.rooms.EvictUsers(conv.ID, in.Remove...)
	}
	s.log.Info().
		Str("conversation_id", conv.ID).
		Int("added", len(add)).
		Int("removed", len(in.Remove)).
		Msg("group membership updated")
	return conv, nil
}

func (s *conversationService) RefreshPreview(ctx context.Context, conversationID, text string, at time.Time) error {
	return s.convs.UpdatePreview(ctx, conversationID, text, at)
}

// requireUsers fails with ErrNotFound when any id has no user behind it.
func (s *conversationService) requireUsers(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	users, err := s.identities.ResolveUsers(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := users[id]; !ok {
			return common.NotFoundError("user %s", id)
		}
	}
	return nil
}

// distinct drops blanks, duplicates and skip, keeping first-seen order.
func distinct(ids []string, skip string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || id == skip {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
