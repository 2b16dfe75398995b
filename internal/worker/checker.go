// Package worker runs the hourly premium sweep: expiry warnings a day ahead
// and normalization of grants that already lapsed.
package worker

import (
	"context"
	"time"

	"tanishuv-bot/internal/app"
	"tanishuv-bot/internal/notify"
	"tanishuv-bot/internal/repository"
	"tanishuv-bot/internal/service/entitlement"
)

const (
	sweepInterval = time.Hour

	// warning window: expiry between 23 and 25 hours out. Two hours wide so
	// an hourly sweep cannot straddle past it.
	warnWindowStart = 23 * time.Hour
	warnWindowEnd   = 25 * time.Hour

	// dedup marker outlives the window comfortably
	warnDedupTTL = 48 * time.Hour
)

// Checker owns the periodic sweep.
type Checker struct {
	appCtx      *app.AppContext
	entitlement *entitlement.Service
	profileRepo *repository.ProfileRepository
	dispatcher  *notify.Dispatcher
}

func NewChecker(appCtx *app.AppContext, ent *entitlement.Service, dispatcher *notify.Dispatcher) *Checker {
	return &Checker{
		appCtx:      appCtx,
		entitlement: ent,
		profileRepo: repository.NewProfileRepository(appCtx.DB),
		dispatcher:  dispatcher,
	}
}

// Start runs one sweep immediately, then hourly until the context is
// cancelled. Blocks; run it in its own goroutine.
func (c *Checker) Start(ctx context.Context) {
	c.appCtx.Logger.Info("premium sweep worker started", "interval", sweepInterval.String())

	c.Sweep(ctx)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.appCtx.Logger.Info("premium sweep worker stopped")
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep walks currently-premium profiles once.
//
// Behavior:
//   - A grant expiring within the warning window produces one warning,
//     deduplicated through Redis across sweeps and restarts.
//   - A lapsed grant is normalized through the entitlement service; the
//     exactly-once JustExpired signal drives the "premium ended" notice, so
//     a user whose status was already normalized by a foreground read is
//     not notified twice.
func (c *Checker) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	profiles, err := c.profileRepo.ListPremium(ctx)
	if err != nil {
		c.appCtx.Logger.Error("premium sweep query failed", "error", err)
		return
	}

	var warned, expired int
	for _, p := range profiles {
		if ctx.Err() != nil {
			return
		}
		if p.PremiumExpiry == nil {
			continue // permanent grant
		}

		until := p.PremiumExpiry.Sub(now)
		switch {
		case until <= 0:
			st, err := c.entitlement.Status(ctx, p.UserID)
			if err != nil {
				c.appCtx.Logger.Error("failed to normalize expired premium", "user", p.UserID, "error", err)
				continue
			}
			if st.JustExpired {
				expired++
				c.dispatcher.Dispatch(ctx, []notify.Event{{
					Kind:      notify.EventPremiumExpired,
					Recipient: p.UserID,
				}})
			}
		case until >= warnWindowStart && until <= warnWindowEnd:
			won, err := c.appCtx.RedisCache.MarkExpiryNotified(ctx, p.UserID, warnDedupTTL)
			if err != nil {
				c.appCtx.Logger.Warn("expiry warning dedup check failed", "user", p.UserID, "error", err)
				continue
			}
			if !won {
				continue
			}
			warned++
			c.dispatcher.Dispatch(ctx, []notify.Event{{
				Kind:      notify.EventExpiryWarning,
				Recipient: p.UserID,
				Expiry:    *p.PremiumExpiry,
			}})
		}
	}

	c.appCtx.Logger.Info("premium sweep finished",
		"premium", len(profiles), "warned", warned, "expired", expired)
}
