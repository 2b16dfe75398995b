package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tanishuv-bot/internal/db"
	"tanishuv-bot/internal/domain"
)

// InteractionRepository provides data access for the three edge ledgers:
// likes, dislikes and skips. Every insert is idempotent via the composite
// primary key, matching the at-most-one-edge-per-kind invariant.
type InteractionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new repository bound to the given DB connection.
func NewInteractionRepository(database *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: database}
}

// InsertLike records like(from -> to).
//
// Returns inserted=false when the edge already existed; the duplicate is
// silently absorbed and nothing changes.
func (r *InteractionRepository) InsertLike(ctx context.Context, from, to int64) (inserted bool, err error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.Like{FromUser: from, ToUser: to})
	if res.Error != nil {
		return false, domain.MapStoreError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// InsertDislike records dislike(from -> to), idempotently.
func (r *InteractionRepository) InsertDislike(ctx context.Context, from, to int64) (inserted bool, err error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.Dislike{FromUser: from, ToUser: to})
	if res.Error != nil {
		return false, domain.MapStoreError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// InsertSkip records skip(from -> to), idempotently.
func (r *InteractionRepository) InsertSkip(ctx context.Context, from, to int64) (inserted bool, err error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.Skip{FromUser: from, ToUser: to})
	if res.Error != nil {
		return false, domain.MapStoreError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// HasLiked checks whether like(from -> to) exists. Used for the mutual-match
// lookup right after an accepted like.
func (r *InteractionRepository) HasLiked(ctx context.Context, from, to int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("from_user = ? AND to_user = ?", from, to).
		Count(&count).Error
	return count > 0, domain.MapStoreError(err)
}

// CountLikesSince counts likes issued by the user after the given instant.
// This is the authoritative source for the rolling like quota; the Redis
// counter is only a cache in front of it.
func (r *InteractionRepository) CountLikesSince(ctx context.Context, from int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("from_user = ? AND created_at > ?", from, since).
		Count(&count).Error
	return count, domain.MapStoreError(err)
}

// DeleteAllFor removes every edge touching the user, in both directions and
// all three ledgers. Part of the account-deletion cascade.
func (r *InteractionRepository) DeleteAllFor(ctx context.Context, userID int64) error {
	for _, model := range []interface{}{&db.Like{}, &db.Dislike{}, &db.Skip{}} {
		err := r.db.WithContext(ctx).
			Where("from_user = ? OR to_user = ?", userID, userID).
			Delete(model).Error
		if err != nil {
			return domain.MapStoreError(err)
		}
	}
	return nil
}

// CountLikes returns the total number of like edges.
func (r *InteractionRepository) CountLikes(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&db.Like{}).Count(&n).Error
	return n, domain.MapStoreError(err)
}

// CountMutualPairs returns the number of unordered mutual-like pairs.
func (r *InteractionRepository) CountMutualPairs(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Table("likes a").
		Joins("JOIN likes b ON a.from_user = b.to_user AND a.to_user = b.from_user").
		Where("a.from_user < a.to_user").
		Count(&n).Error
	return n, domain.MapStoreError(err)
}

// CountDistinctLikers returns how many distinct users have issued at least
// one like.
func (r *InteractionRepository) CountDistinctLikers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Distinct("from_user").
		Count(&n).Error
	return n, domain.MapStoreError(err)
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *InteractionRepository) WithTx(tx *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: tx}
}
