package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"gochat/internal/chat/models"
	"gochat/internal/common"
	"gochat/internal/dbmysql"
)

type gormMessageRepo struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepo{db: db}
}

func (r *gormMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = models.NewID()
	}
	err := r.db.WithContext(ctx).Create(dbmysql.NewMessageRow(msg)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return common.ConflictError("message %s already exists", msg.ID)
	}
	return err
}

func (r *gormMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	var row dbmysql.MessageRow
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundError("message %s", id)
	}
	if err != nil {
		return nil, err
	}
	return row.ToModel(), nil
}

func (r *gormMessageRepo) FindByIDs(ctx context.Context, ids []string) ([]*models.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []dbmysql.MessageRow
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return messageModels(rows), nil
}

func (r *gormMessageRepo) Update(ctx context.Context, msg *models.Message) error {
	row := dbmysql.NewMessageRow(msg)
	res := r.db.WithContext(ctx).Model(row).Select(dbmysql.MessageColumns).Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.ensureExists(ctx, msg.ID)
	}
	return nil
}

// ensureExists distinguishes "no such row" from MySQL reporting zero changed rows.
func (r *gormMessageRepo) ensureExists(ctx context.Context, id string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&dbmysql.MessageRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return common.NotFoundError("message %s", id)
	}
	return nil
}

func (r *gormMessageRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&dbmysql.MessageRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return common.NotFoundError("message %s", id)
	}
	return nil
}

func (r *gormMessageRepo) List(ctx context.Context, q MessageQuery) ([]*models.Message, error) {
	tx := r.db.WithContext(ctx).Model(&dbmysql.MessageRow{})
	if len(q.ConversationIDs) > 0 {
		tx = tx.Where("conversation_id IN ?", q.ConversationIDs)
	}
	if q.PinnedOnly {
		tx = tx.Where("pinned = ?", true)
	}
	if q.Text != "" {
		like := "%" + escapeLike(strings.ToLower(q.Text)) + "%"
		tx = tx.Where("LOWER(text) LIKE ? OR attachment_names LIKE ?", like, like)
	}
	switch q.Sort {
	case SortTimestampDesc:
		tx = tx.Order("timestamp DESC").Order("id DESC")
	case SortPinnedAtDesc:
		tx = tx.Order("pinned_at DESC").Order("id DESC")
	default:
		tx = tx.Order("timestamp ASC").Order("id ASC")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []dbmysql.MessageRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return messageModels(rows), nil
}

func messageModels(rows []dbmysql.MessageRow) []*models.Message {
	out := make([]*models.Message, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToModel())
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
