package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"gochat/internal/chat/models"
	"gochat/internal/common"
	"gochat/internal/dbmysql"
)

type gormConversationRepo struct {
	db *gorm.DB
}

func NewGormConversationRepository(db *gorm.DB) ConversationRepository {
	return &gormConversationRepo{db: db}
}

func (r *gormConversationRepo) Create(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = models.NewID()
	}
	err := r.db.WithContext(ctx).Create(dbmysql.NewConversationRow(conv)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return common.ConflictError("direct conversation already exists")
	}
	return err
}

func (r *gormConversationRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	return r.take(ctx, common.NotFoundError("conversation %s", id), "id = ?", id)
}

func (r *gormConversationRepo) FindDirect(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	return r.take(ctx, common.NotFoundError("direct conversation"), "direct_key = ?", models.DirectKey(userA, userB))
}

func (r *gormConversationRepo) take(ctx context.Context, notFound error, query string, args ...interface{}) (*models.Conversation, error) {
	var row dbmysql.ConversationRow
	err := r.db.WithContext(ctx).Where(query, args...).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return row.ToModel(), nil
}

func (r *gormConversationRepo) ListByParticipant(ctx context.Context, userID string) ([]*models.Conversation, error) {
	var rows []dbmysql.ConversationRow
	err := r.db.WithContext(ctx).
		Where("JSON_CONTAINS(participants, JSON_QUOTE(?))", userID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*models.Conversation, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToModel())
	}
	return out, nil
}

func (r *gormConversationRepo) Update(ctx context.Context, conv *models.Conversation) error {
	row := dbmysql.NewConversationRow(conv)
	res := r.db.WithContext(ctx).Model(row).Select(dbmysql.ConversationColumns).Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.ensureExists(ctx, conv.ID)
	}
	return nil
}

func (r *gormConversationRepo) UpdatePreview(ctx context.Context, id, text string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&dbmysql.ConversationRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"last_message": text, "last_message_time": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.ensureExists(ctx, id)
	}
	return nil
}

func (r *gormConversationRepo) ensureExists(ctx context.Context, id string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&dbmysql.ConversationRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return common.NotFoundError("conversation %s", id)
	}
	return nil
}
