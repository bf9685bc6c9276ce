package service

import (
	"context"
	"sort"
	"strings"

	"gochat/internal/chat/guard"
	"gochat/internal/chat/models"
	"gochat/internal/chat/repository"
	"gochat/internal/common"
)

const defaultSearchLimit = 50

type SearchInput struct {
	Query          string
	ConversationID string
}

// QueryService is the read side: listings, search and the membership check
// the live channel asks before joining a room.
type QueryService interface {
	ListConversations(ctx context.Context, userID string) ([]models.ConversationView, error)
	ListMessages(ctx context.Context, conversationID, actorID string) ([]models.MessageView, error)
	SearchMessages(ctx context.Context, userID string, in SearchInput) ([]models.MessageView, error)
	ListPinned(ctx context.Context, conversationID, actorID string) ([]models.MessageView, error)
	CanJoin(ctx context.Context, conversationID, userID string) error
}

type queryService struct {
	messages    repository.MessageRepository
	convs       repository.ConversationRepository
	guard       *guard.Guard
	projector   *Projector
	searchLimit int
}

func NewQueryService(
	messages repository.MessageRepository,
	convs repository.ConversationRepository,
	g *guard.Guard,
	projector *Projector,
	searchLimit int,
) QueryService {
	if searchLimit <= 0 {
		searchLimit = defaultSearchLimit
	}
	return &queryService{
		messages:    messages,
		convs:       convs,
		guard:       g,
		projector:   projector,
		searchLimit: searchLimit,
	}
}

func (s *queryService) ListConversations(ctx context.Context, userID string) ([]models.ConversationView, error) {
	convs, err := s.convs.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].LastMessageTime.After(convs[j].LastMessageTime)
	})
	return s.projector.Conversations(ctx, convs)
}

func (s *queryService) member(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	if conversationID == "" {
		return nil, common.ValidationError("conversation id is required")
	}
	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireParticipant(conv, userID); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *queryService) ListMessages(ctx context.Context, conversationID, actorID string) ([]models.MessageView, error) {
	if _, err := s.member(ctx, conversationID, actorID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.List(ctx, repository.MessageQuery{
		ConversationIDs: []string{conversationID},
		Sort:            repository.SortTimestampAsc,
	})
	if err != nil {
		return nil, err
	}
	return s.projector.Messages(ctx, msgs, nil)
}

func (s *queryService) SearchMessages(ctx context.Context, userID string, in SearchInput) ([]models.MessageView, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, common.ValidationError("search query is required")
	}

	var scope []*models.Conversation
	if in.ConversationID != "" {
		conv, err := s.member(ctx, in.ConversationID, userID)
		if err != nil {
			return nil, err
		}
		scope = []*models.Conversation{conv}
	} else {
		convs, err := s.convs.ListByParticipant(ctx, userID)
		if err != nil {
			return nil, err
		}
		scope = convs
	}
	// An empty id list would not filter at all.
	if len(scope) == 0 {
		return []models.MessageView{}, nil
	}

	ids := make([]string, 0, len(scope))
	refs := make(map[string]*models.ConversationRef, len(scope))
	for _, c := range scope {
		ids = append(ids, c.ID)
		refs[c.ID] = conversationRef(c)
	}

	msgs, err := s.messages.List(ctx, repository.MessageQuery{
		ConversationIDs: ids,
		Text:            query,
		Sort:            repository.SortTimestampDesc,
		Limit:           s.searchLimit,
	})
	if err != nil {
		return nil, err
	}
	return s.projector.Messages(ctx, msgs, refs)
}

func (s *queryService) ListPinned(ctx context.Context, conversationID, actorID string) ([]models.MessageView, error) {
	if _, err := s.member(ctx, conversationID, actorID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.List(ctx, repository.MessageQuery{
		ConversationIDs: []string{conversationID},
		PinnedOnly:      true,
		Sort:            repository.SortPinnedAtDesc,
	})
	if err != nil {
		return nil, err
	}
	return s.projector.Messages(ctx, msgs, nil)
}

func (s *queryService) CanJoin(ctx context.Context, conversationID, userID string) error {
	_, err := s.member(ctx, conversationID, userID)
	return err
}
