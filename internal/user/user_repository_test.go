package user

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gochat/internal/common"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	return gormDB, mock, func() { db.Close() }
}

var userColumnsSQL = []string{"id", "username", "email", "password_hash", "avatar", "created_at"}

func TestGormUserRepository_Create(t *testing.T) {
	tests := []struct {
		name        string
		mockSetup   func(sqlmock.Sqlmock)
		expectError error
	}{
		{
			name: "successful create",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `users`")).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "duplicate email",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `users`")).
					WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"})
				mock.ExpectRollback()
			},
			expectError: common.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()
			tt.mockSetup(mock)

			repo := NewGormUserRepository(db)
			err := repo.Create(context.Background(), &User{
				ID:           "u1",
				Username:     "alice",
				Email:        "alice@example.com",
				PasswordHash: "hash",
				CreatedAt:    time.Now(),
			})

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormUserRepository_GetByID(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users` WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows(userColumnsSQL).
			AddRow("u1", "alice", "alice@example.com", "hash", "/media/a", created))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users` WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows(userColumnsSQL))

	repo := NewGormUserRepository(db)
	got, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "/media/a", got.Avatar)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_FindByIDs(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users` WHERE id IN (?,?)")).
		WithArgs("u1", "u2").
		WillReturnRows(sqlmock.NewRows(userColumnsSQL).
			AddRow("u1", "alice", "alice@example.com", "hash", "", time.Now()))

	repo := NewGormUserRepository(db)
	users, err := repo.FindByIDs(context.Background(), []string{"u1", "u2"})
	require.NoError(t, err)
	require.Len(t, users, 1)

	empty, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_Update(t *testing.T) {
	tests := []struct {
		name        string
		mockSetup   func(sqlmock.Sqlmock)
		expectError error
	}{
		{
			name: "updated",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("UPDATE `users` SET")).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "unchanged row still exists",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("UPDATE `users` SET")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit()
				mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `users` WHERE id = ?")).
					WithArgs("u1").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
			},
		},
		{
			name: "missing user",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("UPDATE `users` SET")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit()
				mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `users` WHERE id = ?")).
					WithArgs("u1").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
			},
			expectError: common.ErrNotFound,
		},
		{
			name: "username taken",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("UPDATE `users` SET")).
					WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"})
				mock.ExpectRollback()
			},
			expectError: common.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()
			tt.mockSetup(mock)

			err := NewGormUserRepository(db).Update(context.Background(), &User{ID: "u1", Username: "alice", Email: "alice@example.com"})

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormUserRepository_Search(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users` WHERE id <> ? AND (LOWER(username) LIKE ? OR LOWER(email) LIKE ?) ORDER BY username ASC")).
		WillReturnRows(sqlmock.NewRows(userColumnsSQL).
			AddRow("u2", "bob_1", "bob@example.com", "hash", "", time.Now()))

	users, err := NewGormUserRepository(db).Search(context.Background(), "Bob_", "u1", 20)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob_1", users[0].Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}
