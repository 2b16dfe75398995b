package repository

import (
	"context"

	"gorm.io/gorm"

	"tanishuv-bot/internal/db"
	"tanishuv-bot/internal/domain"
)

// AuditRepository provides append and read access to the structured audit
// log. Reports from users live in the same table under AuditReported.
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new repository bound to the given DB connection.
func NewAuditRepository(database *gorm.DB) *AuditRepository {
	return &AuditRepository{db: database}
}

// Record appends one audit entry.
func (r *AuditRepository) Record(ctx context.Context, entry *db.AuditLog) error {
	return domain.MapStoreError(r.db.WithContext(ctx).Create(entry).Error)
}

// ListReports returns the most recent user reports, newest first.
func (r *AuditRepository) ListReports(ctx context.Context, limit int) ([]db.AuditLog, error) {
	var entries []db.AuditLog
	err := r.db.WithContext(ctx).
		Where("kind = ?", domain.AuditReported).
		Order("log_id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, domain.MapStoreError(err)
	}
	return entries, nil
}

// ListByUser returns the user's audit trail, newest first.
func (r *AuditRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]db.AuditLog, error) {
	var entries []db.AuditLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("log_id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, domain.MapStoreError(err)
	}
	return entries, nil
}

// DeleteFor removes the user's audit entries. Part of the account-deletion
// cascade; entries merely targeting the user stay, so reports against a
// deleted account remain reviewable.
func (r *AuditRepository) DeleteFor(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&db.AuditLog{}).Error
	return domain.MapStoreError(err)
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *AuditRepository) WithTx(tx *gorm.DB) *AuditRepository {
	return &AuditRepository{db: tx}
}
