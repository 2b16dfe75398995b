// Package entitlement owns premium state: grants, revocations, referral
// rewards, the rolling like quota and boost ranking.
package entitlement

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tanishuv-bot/internal/app"
	"tanishuv-bot/internal/db"
	"tanishuv-bot/internal/domain"
	"tanishuv-bot/internal/notify"
	"tanishuv-bot/internal/repository"
)

// Service implements the premium entitlement ledger on top of the repository
// and cache layers.
type Service struct {
	appCtx          *app.AppContext
	profileRepo     *repository.ProfileRepository
	interactionRepo *repository.InteractionRepository
	invitationRepo  *repository.InvitationRepository
	auditRepo       *repository.AuditRepository
}

// NewService creates an entitlement service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:          appCtx,
		profileRepo:     repository.NewProfileRepository(appCtx.DB),
		interactionRepo: repository.NewInteractionRepository(appCtx.DB),
		invitationRepo:  repository.NewInvitationRepository(appCtx.DB),
		auditRepo:       repository.NewAuditRepository(appCtx.DB),
	}
}

// Status is the normalized premium view of a profile.
//
// JustExpired is true for exactly one Status call after the expiry passes;
// callers use it to send the "premium ended" notice without duplicates.
type Status struct {
	Premium      bool
	Expiry       *time.Time // nil while premium means a permanent grant
	InvitedCount int
	JustExpired  bool
}

// Status loads the profile's premium state, lazily normalizing an expired
// grant. The conditional UPDATE in NormalizeExpired guarantees that only one
// caller observes JustExpired even under concurrent reads.
func (s *Service) Status(ctx context.Context, userID int64) (*Status, error) {
	p, err := s.profileRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := &Status{
		Premium:      p.Premium,
		Expiry:       p.PremiumExpiry,
		InvitedCount: p.InvitedCount,
	}
	if !p.Premium || p.PremiumExpiry == nil {
		return st, nil
	}

	now := time.Now().UTC()
	if p.PremiumExpiry.After(now) {
		return st, nil
	}

	normalized, err := s.profileRepo.NormalizeExpired(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	st.Premium = false
	st.Expiry = nil
	st.JustExpired = normalized
	return st, nil
}

// CheckLikeQuota reports whether the actor may issue another like right now.
//
// Behavior:
//   - Premium actors (normalized view) are never limited.
//   - Otherwise likes in the trailing 24 hours are counted, cache-first:
//     the Redis window counter answers when warm, the DB count is the
//     authority on a miss and re-primes the cache.
//
// Returns domain.ErrQuotaExceeded at or past the cap.
func (s *Service) CheckLikeQuota(ctx context.Context, actorID int64) error {
	st, err := s.Status(ctx, actorID)
	if err != nil {
		return err
	}
	if st.Premium {
		return nil
	}

	count, hit, err := s.appCtx.RedisCache.GetLikeWindowCount(ctx, actorID)
	if err != nil {
		s.appCtx.Logger.Warn("like-window cache read failed, falling back to DB", "user", actorID, "error", err)
		hit = false
	}
	if !hit {
		since := time.Now().UTC().Add(-24 * time.Hour)
		count, err = s.interactionRepo.CountLikesSince(ctx, actorID, since)
		if err != nil {
			return err
		}
		if err := s.appCtx.RedisCache.SetLikeWindowCount(ctx, actorID, count); err != nil {
			s.appCtx.Logger.Warn("like-window cache prime failed", "user", actorID, "error", err)
		}
	}

	if count >= domain.MaxDailyLikes {
		return domain.ErrQuotaExceeded
	}
	return nil
}

// NoteLike bumps the cached like-window counter after an accepted like.
// Cache errors are swallowed: the DB count stays authoritative.
func (s *Service) NoteLike(ctx context.Context, actorID int64) {
	if err := s.appCtx.RedisCache.IncrLikeWindowCount(ctx, actorID); err != nil {
		s.appCtx.Logger.Warn("like-window cache incr failed", "user", actorID, "error", err)
	}
}

// RecordInvitation credits inviter with bringing in invited.
//
// Behavior:
//   - Self-invites and unknown inviters are rejected.
//   - The insert is idempotent per (inviter, invited) pair: re-following the
//     same link is a silent no-op, a different inviter still earns credit.
//   - invited_count is recomputed from the ledger, never incremented.
//   - At or past the referral threshold every successful invitation extends
//     premium by 24h from the later of now and the current expiry.
//
// Returned events (PremiumGranted) are dispatched by the caller post-commit.
func (s *Service) RecordInvitation(ctx context.Context, inviterID, invitedID int64) ([]notify.Event, error) {
	if inviterID == invitedID {
		return nil, domain.Invalid("self-invitation")
	}
	if _, err := s.profileRepo.Get(ctx, inviterID); err != nil {
		return nil, err
	}

	var events []notify.Event
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profiles := s.profileRepo.WithTx(tx)
		invitations := s.invitationRepo.WithTx(tx)

		inserted, err := invitations.Insert(ctx, inviterID, invitedID)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}

		total, err := invitations.CountByInviter(ctx, inviterID)
		if err != nil {
			return err
		}
		if err := profiles.SetInvitedCount(ctx, inviterID, int(total)); err != nil {
			return err
		}

		if total < domain.ReferralThreshold {
			return nil
		}

		expiry, err := s.extendPremium(ctx, tx, inviterID, domain.ReferralGrantHours*time.Hour)
		if err != nil {
			return err
		}
		if expiry == nil {
			// permanent grant already in place, nothing to extend
			return nil
		}

		if err := s.auditRepo.WithTx(tx).Record(ctx, &db.AuditLog{
			UserID: inviterID,
			Kind:   domain.AuditPremiumGranted,
			Detail: "referral",
		}); err != nil {
			return err
		}
		events = append(events, notify.Event{
			Kind:      notify.EventPremiumGranted,
			Recipient: inviterID,
			Expiry:    *expiry,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(events) > 0 {
		if err := s.appCtx.RedisCache.ClearExpiryNotified(ctx, inviterID); err != nil {
			s.appCtx.Logger.Warn("failed to clear expiry dedup marker", "user", inviterID, "error", err)
		}
	}
	return events, nil
}

// extendPremium stacks a grant on top of the current state: the new expiry is
// max(now, current expiry) + d. A permanent grant (premium with nil expiry)
// is left untouched and signalled with a nil return.
func (s *Service) extendPremium(ctx context.Context, tx *gorm.DB, userID int64, d time.Duration) (*time.Time, error) {
	profiles := s.profileRepo.WithTx(tx)
	p, err := profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.Premium && p.PremiumExpiry == nil {
		return nil, nil
	}

	now := time.Now().UTC()
	base := now
	if p.Premium && p.PremiumExpiry != nil && p.PremiumExpiry.After(now) {
		base = *p.PremiumExpiry
	}
	expiry := base.Add(d)
	if err := profiles.SetPremium(ctx, userID, true, &expiry); err != nil {
		return nil, err
	}
	return &expiry, nil
}

// Grant gives the user premium for the given duration, stacking on any
// active grant. A zero duration means a permanent grant.
func (s *Service) Grant(ctx context.Context, grantedBy, userID int64, d time.Duration) ([]notify.Event, error) {
	var events []notify.Event
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var expiry *time.Time
		if d == 0 {
			if err := s.profileRepo.WithTx(tx).SetPremium(ctx, userID, true, nil); err != nil {
				return err
			}
		} else {
			var err error
			expiry, err = s.extendPremium(ctx, tx, userID, d)
			if err != nil {
				return err
			}
			if expiry == nil {
				return nil // already permanent
			}
		}

		if err := s.auditRepo.WithTx(tx).Record(ctx, &db.AuditLog{
			UserID:   userID,
			Kind:     domain.AuditPremiumGranted,
			TargetID: grantedBy,
			Detail:   "manual",
		}); err != nil {
			return err
		}
		ev := notify.Event{Kind: notify.EventPremiumGranted, Recipient: userID}
		if expiry != nil {
			ev.Expiry = *expiry
		}
		events = append(events, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.appCtx.RedisCache.ClearExpiryNotified(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("failed to clear expiry dedup marker", "user", userID, "error", err)
	}
	return events, nil
}

// Revoke removes premium immediately. Revoking a non-premium user is a no-op
// that still verifies the user exists.
func (s *Service) Revoke(ctx context.Context, revokedBy, userID int64) error {
	return s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.profileRepo.WithTx(tx).SetPremium(ctx, userID, false, nil); err != nil {
			return err
		}
		return s.auditRepo.WithTx(tx).Record(ctx, &db.AuditLog{
			UserID:   userID,
			Kind:     domain.AuditPremiumRevoked,
			TargetID: revokedBy,
		})
	})
}

// Boost stamps the user's last_boost, lifting them in candidate ranking
// until fresher boosts overtake.
func (s *Service) Boost(ctx context.Context, userID int64) error {
	return s.profileRepo.SetBoost(ctx, userID, time.Now().UTC())
}
