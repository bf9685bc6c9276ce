package user

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"gochat/internal/common"
	"gochat/internal/dbmysql"
)

//go:generate mockgen -destination=mock_user_repository.go -package=user gochat/internal/user UserRepository

// UserRepository stores accounts. Lookups on a missing user return
// common.ErrNotFound; a taken username or email returns common.ErrConflict.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	FindByIDs(ctx context.Context, ids []string) ([]*User, error)
	Update(ctx context.Context, user *User) error
	// Search matches username or email case-insensitively, excluding excludeID.
	Search(ctx context.Context, query, excludeID string, limit int) ([]*User, error)
	List(ctx context.Context, excludeID string) ([]*User, error)
}

type gormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

func newUserRow(u *User) *dbmysql.UserRow {
	return &dbmysql.UserRow{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Avatar:       u.Avatar,
		CreatedAt:    u.CreatedAt,
	}
}

func userFromRow(row *dbmysql.UserRow) *User {
	return &User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Avatar:       row.Avatar,
		CreatedAt:    row.CreatedAt,
	}
}

func (r *gormUserRepository) Create(ctx context.Context, user *User) error {
	err := r.db.WithContext(ctx).Create(newUserRow(user)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return common.ConflictError("username or email already taken")
	}
	return err
}

func (r *gormUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.take(ctx, common.NotFoundError("user %s", id), "id = ?", id)
}

func (r *gormUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.take(ctx, common.NotFoundError("user"), "email = ?", email)
}

func (r *gormUserRepository) take(ctx context.Context, notFound error, query string, args ...interface{}) (*User, error) {
	var row dbmysql.UserRow
	err := r.db.WithContext(ctx).Where(query, args...).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return userFromRow(&row), nil
}

func (r *gormUserRepository) FindByIDs(ctx context.Context, ids []string) ([]*User, error) {
	if len(ids) == 0 {
		return []*User{}, nil
	}
	var rows []dbmysql.UserRow
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return usersFromRows(rows), nil
}

func (r *gormUserRepository) Update(ctx context.Context, user *User) error {
	row := newUserRow(user)
	res := r.db.WithContext(ctx).Model(row).
		Select("username", "email", "password_hash", "avatar").
		Updates(row)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return common.ConflictError("username or email already taken")
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&dbmysql.UserRow{}).Where("id = ?", user.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return common.NotFoundError("user %s", user.ID)
		}
	}
	return nil
}

func (r *gormUserRepository) Search(ctx context.Context, query, excludeID string, limit int) ([]*User, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	var rows []dbmysql.UserRow
	tx := r.db.WithContext(ctx).
		Where("id <> ?", excludeID).
		Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern).
		Order("username ASC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return usersFromRows(rows), nil
}

func (r *gormUserRepository) List(ctx context.Context, excludeID string) ([]*User, error) {
	var rows []dbmysql.UserRow
	err := r.db.WithContext(ctx).Where("id <> ?", excludeID).Order("username ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return usersFromRows(rows), nil
}

func usersFromRows(rows []dbmysql.UserRow) []*User {
	out := make([]*User, 0, len(rows))
	for i := range rows {
		out = append(out, userFromRow(&rows[i]))
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
