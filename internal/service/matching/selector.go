// Package matching implements candidate selection and interaction
// processing: who a user sees next and what happens when they act.
package matching

import (
	"context"
	"errors"

	"tanishuv-bot/internal/app"
	"tanishuv-bot/internal/db"
	"tanishuv-bot/internal/domain"
	"tanishuv-bot/internal/repository"
)

// photolessRetryLimit bounds how many photoless profiles a single
// NextCandidate call may silently consume before giving up.
const photolessRetryLimit = 8

// Service implements the matching API on top of the repository layer.
type Service struct {
	appCtx          *app.AppContext
	profileRepo     *repository.ProfileRepository
	interactionRepo *repository.InteractionRepository
	auditRepo       *repository.AuditRepository
	adminRepo       *repository.AdminRepository
	quota           QuotaChecker
}

// QuotaChecker is the slice of the entitlement service the processor needs.
type QuotaChecker interface {
	CheckLikeQuota(ctx context.Context, actorID int64) error
	NoteLike(ctx context.Context, actorID int64)
}

// NewService creates a matching service with dependencies from AppContext.
func NewService(appCtx *app.AppContext, quota QuotaChecker) *Service {
	return &Service{
		appCtx:          appCtx,
		profileRepo:     repository.NewProfileRepository(appCtx.DB),
		interactionRepo: repository.NewInteractionRepository(appCtx.DB),
		auditRepo:       repository.NewAuditRepository(appCtx.DB),
		adminRepo:       repository.NewAdminRepository(appCtx.DB),
		quota:           quota,
	}
}

func (s *Service) isOperator(ctx context.Context, userID int64) (bool, error) {
	if userID == s.appCtx.Cfg.Bot.SuperAdminID {
		return true, nil
	}
	return s.adminRepo.IsAdmin(ctx, userID)
}

// NextCandidate picks the profile to show the viewer next.
//
// Behavior:
//   - Strict pass first: gender fit, same city, unblocked, unseen.
//   - Relaxed pass when the strict pool is empty: the city filter is
//     dropped. Operators skip the strict pass entirely and review the
//     widened pool, blocked and already-reviewed profiles included.
//   - Photoless profiles are treated as absent: the query retries without
//     them, at most photolessRetryLimit times. Nothing is written; the
//     profile surfaces again once it has photos.
//
// Returns domain.ErrNotFound when the pool is exhausted and
// domain.ErrPreconditionFailed when the viewer is blocked.
func (s *Service) NextCandidate(ctx context.Context, viewerID int64) (*db.Profile, error) {
	viewer, err := s.profileRepo.Get(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if viewer.Blocked {
		return nil, domain.ErrPreconditionFailed
	}
	operator, err := s.isOperator(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	var photoless []int64
	for attempt := 0; attempt <= photolessRetryLimit; attempt++ {
		var candidate *db.Profile
		if operator {
			candidate, err = s.profileRepo.NextCandidate(ctx, viewer, repository.CandidateOpts{
				IncludeBlocked: true, IgnoreHistory: true, Exclude: photoless,
			})
		} else {
			candidate, err = s.profileRepo.NextCandidate(ctx, viewer, repository.CandidateOpts{
				SameCity: true, Exclude: photoless,
			})
			if errors.Is(err, domain.ErrNotFound) {
				candidate, err = s.profileRepo.NextCandidate(ctx, viewer, repository.CandidateOpts{
					Exclude: photoless,
				})
			}
		}
		if err != nil {
			return nil, err
		}
		if len(candidate.Photos) > 0 {
			return candidate, nil
		}
		photoless = append(photoless, candidate.UserID)
		s.appCtx.Logger.Debug("retrying past photoless candidate", "viewer", viewerID, "candidate", candidate.UserID)
	}
	return nil, domain.ErrNotFound
}

// IncomingLike is one entry of the "who liked me" queue.
type IncomingLike struct {
	Profile *db.Profile
	Mutual  bool
}

// NextIncomingLike returns the top-ranked unanswered profile that liked the
// viewer, annotated with whether the viewer has already liked them back,
// or domain.ErrNotFound when the queue is empty.
func (s *Service) NextIncomingLike(ctx context.Context, viewerID int64) (*IncomingLike, error) {
	if _, err := s.profileRepo.Get(ctx, viewerID); err != nil {
		return nil, err
	}
	liker, err := s.profileRepo.NextIncomingLiker(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	mutual, err := s.interactionRepo.HasLiked(ctx, viewerID, liker.UserID)
	if err != nil {
		return nil, err
	}
	return &IncomingLike{Profile: liker, Mutual: mutual}, nil
}
