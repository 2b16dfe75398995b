// Package admin implements the operator surface: roster management,
// moderation, reports, stats and broadcasts.
package admin

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"tanishuv-bot/internal/app"
	"tanishuv-bot/internal/db"
	"tanishuv-bot/internal/domain"
	"tanishuv-bot/internal/notify"
	"tanishuv-bot/internal/repository"
)

// broadcastDelay spaces outgoing broadcast messages to stay under the Bot
// API rate limit.
const broadcastDelay = 50 * time.Millisecond

// reportListLimit caps how many recent reports ListReports returns.
const reportListLimit = 20

// Service implements operator functionality on top of the repository layer.
// Broadcast delivers directly through the notifier; everything else returns
// events for post-commit dispatch like the other services.
type Service struct {
	appCtx          *app.AppContext
	profileRepo     *repository.ProfileRepository
	interactionRepo *repository.InteractionRepository
	auditRepo       *repository.AuditRepository
	adminRepo       *repository.AdminRepository
	notifier        notify.Notifier
}

// NewService creates an admin service with dependencies from AppContext.
func NewService(appCtx *app.AppContext, notifier notify.Notifier) *Service {
	return &Service{
		appCtx:          appCtx,
		profileRepo:     repository.NewProfileRepository(appCtx.DB),
		interactionRepo: repository.NewInteractionRepository(appCtx.DB),
		auditRepo:       repository.NewAuditRepository(appCtx.DB),
		adminRepo:       repository.NewAdminRepository(appCtx.DB),
		notifier:        notifier,
	}
}

// IsSuperAdmin reports whether the user is the configured super admin.
func (s *Service) IsSuperAdmin(userID int64) bool {
	return userID != 0 && userID == s.appCtx.Cfg.Bot.SuperAdminID
}

// IsAdmin reports whether the user is the super admin or on the roster.
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	if s.IsSuperAdmin(userID) {
		return true, nil
	}
	return s.adminRepo.IsAdmin(ctx, userID)
}

// Appoint puts the user on the operator roster. Super admin only.
func (s *Service) Appoint(ctx context.Context, callerID, userID int64) error {
	if !s.IsSuperAdmin(callerID) {
		return domain.ErrPreconditionFailed
	}
	return s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.adminRepo.WithTx(tx).Add(ctx, userID); err != nil {
			return err
		}
		return s.auditRepo.WithTx(tx).Record(ctx, &db.AuditLog{
			UserID:   callerID,
			Kind:     domain.AuditAdminAppointed,
			TargetID: userID,
		})
	})
}

// Dismiss removes the user from the roster. Super admin only; the super
// admin themselves cannot be dismissed.
func (s *Service) Dismiss(ctx context.Context, callerID, userID int64) error {
	if !s.IsSuperAdmin(callerID) {
		return domain.ErrPreconditionFailed
	}
	if s.IsSuperAdmin(userID) {
		return domain.Invalid("cannot dismiss the super admin")
	}
	return s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.adminRepo.WithTx(tx).Remove(ctx, userID); err != nil {
			return err
		}
		return s.auditRepo.WithTx(tx).Record(ctx, &db.AuditLog{
			UserID:   callerID,
			Kind:     domain.AuditAdminRemoved,
			TargetID: userID,
		})
	})
}

// SetBlocked blocks or unblocks a profile, with an audit trail entry.
// Admin only.
func (s *Service) SetBlocked(ctx context.Context, callerID, targetID int64, blocked bool) error {
	ok, err := s.IsAdmin(ctx, callerID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrPreconditionFailed
	}
	kind := domain.AuditBlocked
	if !blocked {
		kind = domain.AuditUnblocked
	}
	return s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.profileRepo.WithTx(tx).SetBlocked(ctx, targetID, blocked); err != nil {
			return err
		}
		return s.auditRepo.WithTx(tx).Record(ctx, &db.AuditLog{
			UserID:   callerID,
			Kind:     kind,
			TargetID: targetID,
		})
	})
}

// Message prepares a direct message from an operator to a user, recorded in
// the audit trail. The returned event is dispatched by the caller.
func (s *Service) Message(ctx context.Context, callerID, targetID int64, text string) ([]notify.Event, error) {
	ok, err := s.IsAdmin(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrPreconditionFailed
	}
	if _, err := s.profileRepo.Get(ctx, targetID); err != nil {
		return nil, err
	}
	if err := s.auditRepo.Record(ctx, &db.AuditLog{
		UserID:   callerID,
		Kind:     domain.AuditAdminMessage,
		TargetID: targetID,
		Detail:   text,
	}); err != nil {
		return nil, err
	}
	return []notify.Event{{
		Kind:      notify.EventAdminMessage,
		Recipient: targetID,
		Detail:    text,
	}}, nil
}

// FileReport stores a user's complaint and fans it out to every operator.
func (s *Service) FileReport(ctx context.Context, reporterID, targetID int64, reason string) ([]notify.Event, error) {
	if reporterID == targetID {
		return nil, domain.Invalid("self-report")
	}
	target, err := s.profileRepo.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.auditRepo.Record(ctx, &db.AuditLog{
		UserID:   reporterID,
		Kind:     domain.AuditReported,
		TargetID: targetID,
		Detail:   reason,
	}); err != nil {
		return nil, err
	}

	recipients, err := s.adminRepo.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	if super := s.appCtx.Cfg.Bot.SuperAdminID; super != 0 {
		recipients = append(recipients, super)
	}

	events := make([]notify.Event, 0, len(recipients))
	seen := make(map[int64]bool, len(recipients))
	for _, id := range recipients {
		if seen[id] {
			continue
		}
		seen[id] = true
		events = append(events, notify.Event{
			Kind:      notify.EventReportFiled,
			Recipient: id,
			Subject:   target,
			Detail:    reason,
		})
	}
	return events, nil
}

// ListReports returns the latest user reports, newest first. Admin only.
func (s *Service) ListReports(ctx context.Context, callerID int64) ([]db.AuditLog, error) {
	ok, err := s.IsAdmin(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrPreconditionFailed
	}
	return s.auditRepo.ListReports(ctx, reportListLimit)
}

// Stats is an aggregate snapshot for the operator dashboard.
type Stats struct {
	Users          int64
	Premium        int64
	Blocked        int64
	Likes          int64
	MutualPairs    int64
	DistinctLikers int64
}

// Stats gathers counts across the ledgers. Admin only.
func (s *Service) Stats(ctx context.Context, callerID int64) (*Stats, error) {
	ok, err := s.IsAdmin(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrPreconditionFailed
	}

	st := &Stats{}
	if st.Users, err = s.profileRepo.Count(ctx); err != nil {
		return nil, err
	}
	if st.Premium, err = s.profileRepo.CountWhere(ctx, "premium = ?", true); err != nil {
		return nil, err
	}
	if st.Blocked, err = s.profileRepo.CountWhere(ctx, "blocked = ?", true); err != nil {
		return nil, err
	}
	if st.Likes, err = s.interactionRepo.CountLikes(ctx); err != nil {
		return nil, err
	}
	if st.MutualPairs, err = s.interactionRepo.CountMutualPairs(ctx); err != nil {
		return nil, err
	}
	if st.DistinctLikers, err = s.interactionRepo.CountDistinctLikers(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// Broadcast sends the text to every registered profile, pacing sends and
// tolerating per-recipient failures (typically users who blocked the bot).
// Returns how many messages went out. Admin only.
func (s *Service) Broadcast(ctx context.Context, callerID int64, text string) (sent int, err error) {
	ok, err := s.IsAdmin(ctx, callerID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domain.ErrPreconditionFailed
	}

	ids, err := s.profileRepo.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	for i, id := range ids {
		if i > 0 {
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case <-time.After(broadcastDelay):
			}
		}
		if err := s.notifier.SendText(ctx, id, text); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return sent, err
			}
			s.appCtx.Logger.Warn("broadcast delivery failed", "user", id, "error", err)
			continue
		}
		sent++
	}
	s.appCtx.Logger.Info("broadcast finished", "recipients", len(ids), "sent", sent)
	return sent, nil
}
