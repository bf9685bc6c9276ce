package repository

import (
	"context"
	"time"

	"gochat/internal/chat/models"
)

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks gochat/internal/chat/repository MessageRepository,ConversationRepository

type MessageSort int

const (
	SortTimestampAsc MessageSort = iota
	SortTimestampDesc
	SortPinnedAtDesc
)

// MessageQuery filters a message listing. Empty fields do not filter.
type MessageQuery struct {
	ConversationIDs []string
	// Text matches case-insensitively as a literal substring of the text or any attachment name.
	Text       string
	PinnedOnly bool
	Sort       MessageSort
	Limit      int
}

// MessageRepository is the append-mostly message log.
// Lookups and updates on a missing id return common.ErrNotFound.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	FindByIDs(ctx context.Context, ids []string) ([]*models.Message, error)
	Update(ctx context.Context, msg *models.Message) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q MessageQuery) ([]*models.Message, error)
}

// ConversationRepository stores conversations. Creating a second direct
// conversation for the same pair returns common.ErrConflict.
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation) error
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	FindDirect(ctx context.Context, userA, userB string) (*models.Conversation, error)
	ListByParticipant(ctx context.Context, userID string) ([]*models.Conversation, error)
	Update(ctx context.Context, conv *models.Conversation) error
	UpdatePreview(ctx context.Context, id, text string, at time.Time) error
}
