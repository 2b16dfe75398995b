package entitlement_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tanishuv-bot/internal/app"
	"tanishuv-bot/internal/cache"
	"tanishuv-bot/internal/config"
	"tanishuv-bot/internal/db"
	"tanishuv-bot/internal/domain"
	"tanishuv-bot/internal/notify"
	"tanishuv-bot/internal/service/entitlement"
)

// setupService spins up an in-memory SQLite DB, a miniredis, and wires an
// entitlement service. Each test gets its own isolated DB + Redis.
func setupService(t *testing.T) (*entitlement.Service, *gorm.DB) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	appCtx := app.New(dbase, redisCache, logger, cfg)
	return entitlement.NewService(appCtx), dbase
}

func createProfile(t *testing.T, gdb *gorm.DB, id int64, mutate ...func(*db.Profile)) {
	t.Helper()
	p := &db.Profile{
		UserID:        id,
		Name:          "n",
		Photos:        db.PhotoList{"photo-1"},
		Age:           25,
		Gender:        domain.GenderMale,
		SeekingGender: domain.GenderFemale,
		Country:       "Таджикистан",
		City:          "Душанбе",
	}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, gdb.Create(p).Error)
}

func TestStatusNormalizesExpiredExactlyOnce(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	past := time.Now().UTC().Add(-time.Hour)
	createProfile(t, gdb, 1, func(p *db.Profile) {
		p.Premium = true
		p.PremiumExpiry = &past
	})

	st, err := svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.False(t, st.Premium)
	assert.Nil(t, st.Expiry)
	assert.True(t, st.JustExpired)

	// second read sees the already-normalized row
	st, err = svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.False(t, st.Premium)
	assert.False(t, st.JustExpired)
}

func TestStatusPermanentGrant(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	createProfile(t, gdb, 1, func(p *db.Profile) { p.Premium = true })

	st, err := svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.True(t, st.Premium)
	assert.Nil(t, st.Expiry)
	assert.False(t, st.JustExpired)
}

func TestStatusUnknownUser(t *testing.T) {
	svc, _ := setupService(t)
	_, err := svc.Status(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckLikeQuota(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	createProfile(t, gdb, 1)
	createProfile(t, gdb, 2, func(p *db.Profile) { p.Premium = true })

	// one short of the cap
	now := time.Now().UTC()
	for i := 0; i < domain.MaxDailyLikes-1; i++ {
		require.NoError(t, gdb.Create(&db.Like{FromUser: 1, ToUser: int64(100 + i), CreatedAt: now.Add(-time.Minute)}).Error)
	}
	// an old like outside the window must not count
	require.NoError(t, gdb.Create(&db.Like{FromUser: 1, ToUser: 999, CreatedAt: now.Add(-25 * time.Hour)}).Error)

	assert.NoError(t, svc.CheckLikeQuota(ctx, 1))

	// the accepted like lands in the warm cache and tips it over
	svc.NoteLike(ctx, 1)
	assert.ErrorIs(t, svc.CheckLikeQuota(ctx, 1), domain.ErrQuotaExceeded)

	// premium is never limited
	for i := 0; i < domain.MaxDailyLikes+5; i++ {
		require.NoError(t, gdb.Create(&db.Like{FromUser: 2, ToUser: int64(200 + i), CreatedAt: now}).Error)
	}
	assert.NoError(t, svc.CheckLikeQuota(ctx, 2))
}

func TestRecordInvitationThresholdAndStacking(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	createProfile(t, gdb, 1)

	// below the threshold: counted, no grant
	for i := int64(101); i <= 104; i++ {
		events, err := svc.RecordInvitation(ctx, 1, i)
		require.NoError(t, err)
		assert.Empty(t, events)
	}
	var p db.Profile
	require.NoError(t, gdb.First(&p, "user_id = ?", 1).Error)
	assert.Equal(t, 4, p.InvitedCount)
	assert.False(t, p.Premium)

	// re-following the same link is a silent no-op
	events, err := svc.RecordInvitation(ctx, 1, 101)
	require.NoError(t, err)
	assert.Empty(t, events)
	require.NoError(t, gdb.First(&p, "user_id = ?", 1).Error)
	assert.Equal(t, 4, p.InvitedCount)

	// but a different inviter of the same user earns their own credit
	createProfile(t, gdb, 2)
	_, err = svc.RecordInvitation(ctx, 2, 101)
	require.NoError(t, err)
	// fresh struct: gorm folds a populated primary key into the conditions
	p = db.Profile{}
	require.NoError(t, gdb.First(&p, "user_id = ?", 2).Error)
	assert.Equal(t, 1, p.InvitedCount)

	// fifth invite fires the grant
	events, err = svc.RecordInvitation(ctx, 1, 105)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventPremiumGranted, events[0].Kind)

	p = db.Profile{}
	require.NoError(t, gdb.First(&p, "user_id = ?", 1).Error)
	assert.True(t, p.Premium)
	require.NotNil(t, p.PremiumExpiry)
	assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), *p.PremiumExpiry, time.Minute)

	// sixth invite stacks another 24h on the unexpired grant
	events, err = svc.RecordInvitation(ctx, 1, 106)
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, gdb.First(&p, "user_id = ?", 1).Error)
	require.NotNil(t, p.PremiumExpiry)
	assert.WithinDuration(t, time.Now().UTC().Add(48*time.Hour), *p.PremiumExpiry, time.Minute)
}

func TestRecordInvitationRejectsSelfAndUnknownInviter(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	createProfile(t, gdb, 1)

	_, err := svc.RecordInvitation(ctx, 1, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.RecordInvitation(ctx, 404, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGrantStacksAndRevoke(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	createProfile(t, gdb, 1)

	events, err := svc.Grant(ctx, 7, 1, 48*time.Hour)
	require.NoError(t, err)
	require.Len(t, events, 1)

	var p db.Profile
	require.NoError(t, gdb.First(&p, "user_id = ?", 1).Error)
	assert.True(t, p.Premium)
	require.NotNil(t, p.PremiumExpiry)
	assert.WithinDuration(t, time.Now().UTC().Add(48*time.Hour), *p.PremiumExpiry, time.Minute)

	// second grant extends from the current expiry, not from now
	_, err = svc.Grant(ctx, 7, 1, 24*time.Hour)
	require.NoError(t, err)
	require.NoError(t, gdb.First(&p, "user_id = ?", 1).Error)
	require.NotNil(t, p.PremiumExpiry)
	assert.WithinDuration(t, time.Now().UTC().Add(72*time.Hour), *p.PremiumExpiry, time.Minute)

	require.NoError(t, svc.Revoke(ctx, 7, 1))
	// fresh struct: gorm leaves pointer fields untouched when scanning NULLs
	p = db.Profile{}
	require.NoError(t, gdb.First(&p, "user_id = ?", 1).Error)
	assert.False(t, p.Premium)
	assert.Nil(t, p.PremiumExpiry)
}

func TestGrantPermanent(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	createProfile(t, gdb, 1)

	events, err := svc.Grant(ctx, 7, 1, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Expiry.IsZero())

	var p db.Profile
	require.NoError(t, gdb.First(&p, "user_id = ?", 1).Error)
	assert.True(t, p.Premium)
	assert.Nil(t, p.PremiumExpiry)

	// a timed grant on top of a permanent one changes nothing
	events, err = svc.Grant(ctx, 7, 1, 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, events)
	require.NoError(t, gdb.First(&p, "user_id = ?", 1).Error)
	assert.Nil(t, p.PremiumExpiry)
}

func TestBoost(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	createProfile(t, gdb, 1)
	require.NoError(t, svc.Boost(ctx, 1))

	var p db.Profile
	require.NoError(t, gdb.First(&p, "user_id = ?", 1).Error)
	require.NotNil(t, p.LastBoost)
	assert.WithinDuration(t, time.Now().UTC(), *p.LastBoost, time.Minute)
}
