package dbmysql

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gochat/internal/config"
)

// NewMySQL returns a GORM DB instance connected to MySQL with the chat schema migrated.
func NewMySQL(cnf *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	dsn := cnf.DSN()

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql.DB error: %w", err)
	}
	sqlDB.SetMaxOpenConns(cnf.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cnf.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info().
		Str("host", cnf.Database.Host).
		Str("database", cnf.Database.DatabaseName).
		Msg("connected to MySQL")

	return db, nil
}

// Migrate creates or updates the chat tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&UserRow{}, &ConversationRow{}, &MessageRow{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
