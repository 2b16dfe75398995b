package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tanishuv-bot/internal/db"
	"tanishuv-bot/internal/domain"
)

// ProfileRepository provides data access methods for the Profile model and
// the candidate-selection queries built on top of it.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Get loads a profile by user ID.
func (r *ProfileRepository) Get(ctx context.Context, userID int64) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, domain.MapStoreError(err)
	}
	return &p, nil
}

// Upsert inserts the profile or overwrites every editable column of an
// existing row. Blocked state and invited_count are never touched here:
// those belong to moderation and the referral ledger respectively.
func (r *ProfileRepository) Upsert(ctx context.Context, p *db.Profile) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"username", "name", "photos", "age", "gender", "description",
				"seeking_gender", "country", "city", "updated_at",
			}),
		}).
		Create(p).Error
	return domain.MapStoreError(err)
}

// CandidateOpts controls which filters the candidate query applies.
//
//   - SameCity:       restrict to the viewer's city (strict pass only).
//   - IncludeBlocked:  do not filter out blocked profiles (operator review).
//   - IgnoreHistory:  do not exclude profiles the viewer already acted on
//     (operator review).
//   - Exclude:        user IDs to leave out of this query regardless of the
//     other filters (photoless profiles the caller is retrying past).
type CandidateOpts struct {
	SameCity       bool
	IncludeBlocked bool
	IgnoreHistory  bool
	Exclude        []int64
}

// NextCandidate returns the best-ranked profile the viewer has not seen.
//
// Behavior:
//   - Candidate gender must equal the viewer's seeking gender. The
//     candidate's own preference is not consulted; one-directional fit is
//     all the pool requires.
//   - The viewer themselves is never returned.
//   - Unless IncludeBlocked, blocked profiles are excluded.
//   - Unless IgnoreHistory, profiles with any prior like/dislike/skip edge
//     from the viewer are excluded.
//   - Ranking: premium first, then most recent boost, then random.
//
// Returns domain.ErrNotFound when the pool is exhausted.
func (r *ProfileRepository) NextCandidate(ctx context.Context, viewer *db.Profile, opts CandidateOpts) (*db.Profile, error) {
	q := r.db.WithContext(ctx).
		Table("users u").
		Where("u.user_id <> ?", viewer.UserID).
		Where("u.gender = ?", viewer.SeekingGender)

	if !opts.IncludeBlocked {
		q = q.Where("u.blocked = ?", false)
	}
	if opts.SameCity {
		q = q.Where("u.city = ?", viewer.City)
	}
	if len(opts.Exclude) > 0 {
		q = q.Where("u.user_id NOT IN ?", opts.Exclude)
	}
	if !opts.IgnoreHistory {
		q = q.Where(`
			NOT EXISTS (SELECT 1 FROM likes    l WHERE l.from_user = ? AND l.to_user = u.user_id)`, viewer.UserID).
			Where(`
			NOT EXISTS (SELECT 1 FROM dislikes d WHERE d.from_user = ? AND d.to_user = u.user_id)`, viewer.UserID).
			Where(`
			NOT EXISTS (SELECT 1 FROM skips    s WHERE s.from_user = ? AND s.to_user = u.user_id)`, viewer.UserID)
	}

	var p db.Profile
	err := q.Order("u.premium DESC, u.last_boost DESC").
		Order(db.RandomOrderExpr(r.db)).
		Limit(1).
		Take(&p).Error
	if err != nil {
		return nil, domain.MapStoreError(err)
	}
	return &p, nil
}

// NextIncomingLiker returns the best-ranked not-yet-answered profile that
// liked the viewer.
//
// Behavior:
//   - Only likers with like(liker -> viewer) are considered.
//   - Likers the viewer already acted on (like/dislike/skip) are excluded.
//   - Blocked likers are excluded.
//   - Ranked like the candidate query: premium first, then most recent
//     boost, then random.
//
// Returns domain.ErrNotFound when the queue is empty.
func (r *ProfileRepository) NextIncomingLiker(ctx context.Context, viewerID int64) (*db.Profile, error) {
	var p db.Profile
	err := r.db.WithContext(ctx).
		Table("users u").
		Joins("JOIN likes l ON l.from_user = u.user_id AND l.to_user = ?", viewerID).
		Where("u.blocked = ?", false).
		Where(`
			NOT EXISTS (SELECT 1 FROM likes    l2 WHERE l2.from_user = ? AND l2.to_user = u.user_id)`, viewerID).
		Where(`
			NOT EXISTS (SELECT 1 FROM dislikes d2 WHERE d2.from_user = ? AND d2.to_user = u.user_id)`, viewerID).
		Where(`
			NOT EXISTS (SELECT 1 FROM skips    s2 WHERE s2.from_user = ? AND s2.to_user = u.user_id)`, viewerID).
		Order("u.premium DESC, u.last_boost DESC").
		Order(db.RandomOrderExpr(r.db)).
		Limit(1).
		Take(&p).Error
	if err != nil {
		return nil, domain.MapStoreError(err)
	}
	return &p, nil
}

// SetBlocked flips the moderation flag.
func (r *ProfileRepository) SetBlocked(ctx context.Context, userID int64, blocked bool) error {
	res := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("user_id = ?", userID).
		Update("blocked", blocked)
	if res.Error != nil {
		return domain.MapStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetPremium writes the premium flag together with its expiry in one update
// so readers never observe a half-written pair.
func (r *ProfileRepository) SetPremium(ctx context.Context, userID int64, premium bool, expiry *time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"premium":        premium,
			"premium_expiry": expiry,
		})
	if res.Error != nil {
		return domain.MapStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// NormalizeExpired flips premium off when its expiry has passed. The WHERE
// clause makes the flip atomic: exactly one concurrent caller observes
// normalized=true, which drives the one-shot expiry notification.
func (r *ProfileRepository) NormalizeExpired(ctx context.Context, userID int64, now time.Time) (normalized bool, err error) {
	res := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("user_id = ? AND premium = ? AND premium_expiry IS NOT NULL AND premium_expiry <= ?", userID, true, now).
		Updates(map[string]interface{}{
			"premium":        false,
			"premium_expiry": nil,
		})
	if res.Error != nil {
		return false, domain.MapStoreError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SetBoost stamps last_boost, promoting the profile in candidate ranking.
func (r *ProfileRepository) SetBoost(ctx context.Context, userID int64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("user_id = ?", userID).
		Update("last_boost", at)
	if res.Error != nil {
		return domain.MapStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetInvitedCount overwrites the denormalized referral counter.
func (r *ProfileRepository) SetInvitedCount(ctx context.Context, userID int64, count int) error {
	err := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("user_id = ?", userID).
		Update("invited_count", count).Error
	return domain.MapStoreError(err)
}

// ListIDs returns every profile's user ID, blocked ones included. Used for
// broadcasts.
func (r *ProfileRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, domain.MapStoreError(err)
	}
	return ids, nil
}

// ListPremium returns all profiles currently flagged premium. The expiry
// sweeper walks this list; lazy normalization on read handles the rest.
func (r *ProfileRepository) ListPremium(ctx context.Context) ([]db.Profile, error) {
	var profiles []db.Profile
	err := r.db.WithContext(ctx).
		Where("premium = ?", true).
		Find(&profiles).Error
	if err != nil {
		return nil, domain.MapStoreError(err)
	}
	return profiles, nil
}

// Delete removes the profile row. Callers run this inside a transaction that
// also clears the user's edges, invitations, logs and admin grant.
func (r *ProfileRepository) Delete(ctx context.Context, userID int64) error {
	res := r.db.WithContext(ctx).Delete(&db.Profile{}, "user_id = ?", userID)
	if res.Error != nil {
		return domain.MapStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the total number of profiles.
func (r *ProfileRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&db.Profile{}).Count(&n).Error
	return n, domain.MapStoreError(err)
}

// CountWhere counts profiles matching a simple column condition, e.g.
// CountWhere(ctx, "premium = ?", true).
func (r *ProfileRepository) CountWhere(ctx context.Context, cond string, args ...interface{}) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&db.Profile{}).Where(cond, args...).Count(&n).Error
	return n, domain.MapStoreError(err)
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *ProfileRepository) WithTx(tx *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: tx}
}
