// Package profile handles registration, editing and account deletion.
package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"tanishuv-bot/internal/app"
	"tanishuv-bot/internal/db"
	"tanishuv-bot/internal/domain"
	"tanishuv-bot/internal/repository"
)

// Service implements profile lifecycle on top of the repository layer.
type Service struct {
	appCtx          *app.AppContext
	profileRepo     *repository.ProfileRepository
	interactionRepo *repository.InteractionRepository
	invitationRepo  *repository.InvitationRepository
	auditRepo       *repository.AuditRepository
	adminRepo       *repository.AdminRepository
}

// NewService creates a profile service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:          appCtx,
		profileRepo:     repository.NewProfileRepository(appCtx.DB),
		interactionRepo: repository.NewInteractionRepository(appCtx.DB),
		invitationRepo:  repository.NewInvitationRepository(appCtx.DB),
		auditRepo:       repository.NewAuditRepository(appCtx.DB),
		adminRepo:       repository.NewAdminRepository(appCtx.DB),
	}
}

// Input is a complete profile submission from the registration flow.
type Input struct {
	UserID        int64
	Username      string
	Name          string
	Photos        []string
	Age           int
	Gender        domain.Gender
	SeekingGender domain.Gender
	Country       string
	City          string
	Description   string
}

func (in *Input) validate() error {
	if in.UserID == 0 {
		return domain.Invalid("missing user id")
	}
	if strings.TrimSpace(in.Name) == "" {
		return domain.Invalid("empty name")
	}
	if in.Age <= 0 {
		return domain.Invalid("age must be positive")
	}
	if !in.Gender.Valid() {
		return domain.Invalid("unknown gender %q", in.Gender)
	}
	if !in.SeekingGender.Valid() {
		return domain.Invalid("unknown seeking gender %q", in.SeekingGender)
	}
	if len(in.Photos) == 0 || len(in.Photos) > domain.MaxProfilePhotos {
		return domain.Invalid("photo count must be 1..%d", domain.MaxProfilePhotos)
	}
	if !db.ValidCountry(in.Country) {
		return domain.Invalid("unknown country %q", in.Country)
	}
	if !db.ValidCity(in.Country, in.City) {
		return domain.Invalid("city %q is not in %s", in.City, in.Country)
	}
	if n := len([]rune(in.Description)); n > domain.MaxDescriptionChars {
		return domain.Invalid("description is %d chars, max %d", n, domain.MaxDescriptionChars)
	}
	return nil
}

// Get loads a profile by user ID.
func (s *Service) Get(ctx context.Context, userID int64) (*db.Profile, error) {
	return s.profileRepo.Get(ctx, userID)
}

// Upsert creates or fully replaces the user's profile.
//
// Behavior:
//   - The submission is validated first; an over-long description is
//     rejected so the sender can shorten it rather than lose the tail.
//   - Moderation state and the referral counter survive re-registration.
//   - A first-time registration stamps last_boost, giving newcomers a spell
//     at the top of candidate ranking.
//
// Returns created=true on first registration.
func (s *Service) Upsert(ctx context.Context, in Input) (created bool, err error) {
	if err := in.validate(); err != nil {
		return false, err
	}

	_, err = s.profileRepo.Get(ctx, in.UserID)
	switch {
	case err == nil:
		created = false
	case errors.Is(err, domain.ErrNotFound):
		created = true
	default:
		return false, err
	}

	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profiles := s.profileRepo.WithTx(tx)

		p := &db.Profile{
			UserID:        in.UserID,
			Username:      in.Username,
			Name:          strings.TrimSpace(in.Name),
			Photos:        db.PhotoList(in.Photos),
			Age:           in.Age,
			Gender:        in.Gender,
			SeekingGender: in.SeekingGender,
			Country:       in.Country,
			City:          in.City,
			Description:   in.Description,
		}
		if err := profiles.Upsert(ctx, p); err != nil {
			return err
		}

		kind := domain.AuditProfileEdited
		if created {
			kind = domain.AuditProfileCreated
			if err := profiles.SetBoost(ctx, in.UserID, time.Now().UTC()); err != nil {
				return err
			}
		}
		return s.auditRepo.WithTx(tx).Record(ctx, &db.AuditLog{
			UserID: in.UserID,
			Kind:   kind,
		})
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// Delete removes the account and everything that references it: edges in
// all three ledgers, invitations on either side, the audit trail, and any
// operator grant. Runs in one transaction so a failure leaves the account
// intact.
func (s *Service) Delete(ctx context.Context, userID int64) error {
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.interactionRepo.WithTx(tx).DeleteAllFor(ctx, userID); err != nil {
			return err
		}
		if err := s.invitationRepo.WithTx(tx).DeleteFor(ctx, userID); err != nil {
			return err
		}
		if err := s.auditRepo.WithTx(tx).DeleteFor(ctx, userID); err != nil {
			return err
		}
		if err := s.adminRepo.WithTx(tx).Remove(ctx, userID); err != nil {
			return err
		}
		return s.profileRepo.WithTx(tx).Delete(ctx, userID)
	})
	if err != nil {
		return err
	}

	// stale counters must not leak onto a future re-registration
	if err := s.appCtx.RedisCache.ClearExpiryNotified(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("failed to clear expiry dedup marker", "user", userID, "error", err)
	}
	return nil
}
