package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tanishuv-bot/internal/db"
	"tanishuv-bot/internal/domain"
)

// InvitationRepository provides data access for the referral ledger. Each
// (inviter, invited) pair exists at most once.
type InvitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new repository bound to the given DB connection.
func NewInvitationRepository(database *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: database}
}

// Insert records that inviter brought in invited. Returns inserted=false
// when this pair already exists.
func (r *InvitationRepository) Insert(ctx context.Context, inviterID, invitedID int64) (inserted bool, err error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.Invitation{InviterID: inviterID, InvitedID: invitedID})
	if res.Error != nil {
		return false, domain.MapStoreError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CountByInviter recomputes the inviter's referral total from the ledger.
// The users.invited_count column is a denormalized copy of this value.
func (r *InvitationRepository) CountByInviter(ctx context.Context, inviterID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.Invitation{}).
		Where("inviter_id = ?", inviterID).
		Count(&n).Error
	return n, domain.MapStoreError(err)
}

// DeleteFor removes invitation rows touching the user on either side.
// Part of the account-deletion cascade.
func (r *InvitationRepository) DeleteFor(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).
		Where("inviter_id = ? OR invited_id = ?", userID, userID).
		Delete(&db.Invitation{}).Error
	return domain.MapStoreError(err)
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *InvitationRepository) WithTx(tx *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: tx}
}
