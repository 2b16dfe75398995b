package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tanishuv-bot/internal/config"
)

// NewDB initializes the database connection using DSN from config.
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DB.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate keeps the schema in sync with the models. Tests call this directly
// against an in-memory sqlite database.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Profile{},
		&Like{},
		&Dislike{},
		&Skip{},
		&Invitation{},
		&AuditLog{},
		&Admin{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// RandomOrderExpr returns the dialect's random-order function, used as the
// final tie-break in candidate ranking.
func RandomOrderExpr(db *gorm.DB) string {
	if db.Dialector.Name() == "mysql" {
		return "RAND()"
	}
	return "RANDOM()"
}
