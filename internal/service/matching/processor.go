package matching

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tanishuv-bot/internal/db"
	"tanishuv-bot/internal/domain"
	"tanishuv-bot/internal/notify"
)

// ApplyAction records the actor's decision on the target and works out every
// consequence in one transaction.
//
// Behavior:
//   - A blocked actor may still dislike and skip (clearing their queue) but
//     may not like.
//   - Liking a blocked or deleted target is refused with a soft outcome; the
//     session stays alive.
//   - The like quota is enforced before the edge is written.
//   - Re-issuing an existing edge is a silent no-op: accepted, but no audit
//     entry and no notifications fire a second time.
//   - A freshly inserted like always notifies the target that they were
//     liked, then checks for the reverse edge; on a mutual match both users
//     and the operator channel are additionally notified exactly once.
//
// Soft refusals come back as an Outcome with a nil error. The returned
// events must be dispatched by the caller after this method returns, i.e.
// after the transaction has committed.
func (s *Service) ApplyAction(ctx context.Context, actorID, targetID int64, action domain.Action) (domain.Outcome, []notify.Event, error) {
	if !action.Valid() {
		return "", nil, domain.Invalid("unknown action %q", action)
	}
	if actorID == targetID {
		return "", nil, domain.Invalid("self-action")
	}

	actor, err := s.profileRepo.Get(ctx, actorID)
	if err != nil {
		return "", nil, err
	}
	if actor.Blocked && action == domain.ActionLike {
		return domain.OutcomeActorBlocked, nil, nil
	}

	target, err := s.profileRepo.Get(ctx, targetID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.OutcomeTargetUnavailable, nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	if target.Blocked && action == domain.ActionLike {
		return domain.OutcomeTargetBlocked, nil, nil
	}

	if action == domain.ActionLike {
		if err := s.quota.CheckLikeQuota(ctx, actorID); err != nil {
			if errors.Is(err, domain.ErrQuotaExceeded) {
				return domain.OutcomeQuotaExceeded, nil, nil
			}
			return "", nil, err
		}
	}

	var (
		events       []notify.Event
		likeInserted bool
	)
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		interactions := s.interactionRepo.WithTx(tx)
		audits := s.auditRepo.WithTx(tx)

		var (
			inserted bool
			kind     domain.AuditKind
			err      error
		)
		switch action {
		case domain.ActionLike:
			inserted, err = interactions.InsertLike(ctx, actorID, targetID)
			kind = domain.AuditLiked
		case domain.ActionDislike:
			inserted, err = interactions.InsertDislike(ctx, actorID, targetID)
			kind = domain.AuditDisliked
		case domain.ActionSkip:
			inserted, err = interactions.InsertSkip(ctx, actorID, targetID)
			kind = domain.AuditSkipped
		}
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}

		if err := audits.Record(ctx, &db.AuditLog{
			UserID:   actorID,
			Kind:     kind,
			TargetID: targetID,
		}); err != nil {
			return err
		}

		if action != domain.ActionLike {
			return nil
		}
		likeInserted = true

		// the target hears about the like whether or not it completed a match
		events = append(events, notify.Event{
			Kind:      notify.EventLikeReceived,
			Recipient: targetID,
			Subject:   actor,
		})

		mutual, err := interactions.HasLiked(ctx, targetID, actorID)
		if err != nil {
			return err
		}
		if mutual {
			events = append(events,
				notify.Event{Kind: notify.EventMutualMatch, Recipient: actorID, Subject: target},
				notify.Event{Kind: notify.EventMutualMatch, Recipient: targetID, Subject: actor},
			)
			if operatorID := s.appCtx.Cfg.Bot.SuperAdminID; operatorID != 0 {
				events = append(events, notify.Event{
					Kind:      notify.EventOperatorMatch,
					Recipient: operatorID,
					Subject:   target,
					Detail:    formatContact(actor),
				})
			}
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	if likeInserted {
		s.quota.NoteLike(ctx, actorID)
	}
	return domain.OutcomeAccepted, events, nil
}

func formatContact(p *db.Profile) string {
	if p.Username != "" {
		return "@" + p.Username
	}
	return p.Name
}
