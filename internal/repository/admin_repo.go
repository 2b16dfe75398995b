package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tanishuv-bot/internal/db"
	"tanishuv-bot/internal/domain"
)

// AdminRepository provides data access for the operator roster.
type AdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository creates a new repository bound to the given DB connection.
func NewAdminRepository(database *gorm.DB) *AdminRepository {
	return &AdminRepository{db: database}
}

// IsAdmin reports whether the user is on the operator roster.
func (r *AdminRepository) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Admin{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count > 0, domain.MapStoreError(err)
}

// Add appoints the user, idempotently.
func (r *AdminRepository) Add(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.Admin{UserID: userID}).Error
	return domain.MapStoreError(err)
}

// Remove drops the user from the roster. Removing a non-admin is a no-op.
func (r *AdminRepository) Remove(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).
		Delete(&db.Admin{}, "user_id = ?", userID).Error
	return domain.MapStoreError(err)
}

// ListIDs returns every operator's user ID.
func (r *AdminRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&db.Admin{}).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, domain.MapStoreError(err)
	}
	return ids, nil
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *AdminRepository) WithTx(tx *gorm.DB) *AdminRepository {
	return &AdminRepository{db: tx}
}
