package admin_test

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
	"tanishuv-bot/internal/service/admin"
)

const superID = int64(900)

// recordingNotifier captures sends and can fail for chosen recipients.
type recordingNotifier struct {
	sent    []int64
	failFor map[int64]bool
}

func (n *recordingNotifier) SendText(_ context.Context, chatID int64, _ string) error {
	if n.failFor[chatID] {
		return fmt.Errorf("blocked by user %d", chatID)
	}
	n.sent = append(n.sent, chatID)
	return nil
}

func (n *recordingNotifier) SendProfileCard(ctx context.Context, chatID int64, _ *db.Profile, caption string) error {
	return n.SendText(ctx, chatID, caption)
}

func setupService(t *testing.T) (*admin.Service, *recordingNotifier, *gorm.DB) {
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
	cfg.Bot.SuperAdminID = superID

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	appCtx := app.New(dbase, redisCache, logger, cfg)
	notifier := &recordingNotifier{failFor: map[int64]bool{}}
	return admin.NewService(appCtx, notifier), notifier, dbase
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

func TestRosterAndPermissions(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	// only the super admin appoints
	assert.ErrorIs(t, svc.Appoint(ctx, 1, 2), domain.ErrPreconditionFailed)
	require.NoError(t, svc.Appoint(ctx, superID, 2))

	ok, err := svc.IsAdmin(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsAdmin(ctx, superID)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, svc.Dismiss(ctx, 2, superID), domain.ErrPreconditionFailed)
	assert.ErrorIs(t, svc.Dismiss(ctx, superID, superID), domain.ErrInvalidInput)

	require.NoError(t, svc.Dismiss(ctx, superID, 2))
	ok, err = svc.IsAdmin(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetBlocked(t *testing.T) {
	ctx := context.Background()
	svc, _, gdb := setupService(t)

	createProfile(t, gdb, 5)

	assert.ErrorIs(t, svc.SetBlocked(ctx, 5, 5, true), domain.ErrPreconditionFailed)

	require.NoError(t, svc.SetBlocked(ctx, superID, 5, true))
	var p db.Profile
	require.NoError(t, gdb.First(&p, "user_id = ?", 5).Error)
	assert.True(t, p.Blocked)

	require.NoError(t, svc.SetBlocked(ctx, superID, 5, false))
	require.NoError(t, gdb.First(&p, "user_id = ?", 5).Error)
	assert.False(t, p.Blocked)

	var kinds []domain.AuditKind
	require.NoError(t, gdb.Model(&db.AuditLog{}).Order("log_id ASC").Pluck("kind", &kinds).Error)
	assert.Equal(t, []domain.AuditKind{domain.AuditBlocked, domain.AuditUnblocked}, kinds)
}

func TestFileReportFansOutToOperators(t *testing.T) {
	ctx := context.Background()
	svc, _, gdb := setupService(t)

	createProfile(t, gdb, 5)
	require.NoError(t, svc.Appoint(ctx, superID, 10))

	_, err := svc.FileReport(ctx, 1, 1, "сам на себя")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	events, err := svc.FileReport(ctx, 1, 5, "спам")
	require.NoError(t, err)
	require.Len(t, events, 2)

	recipients := []int64{events[0].Recipient, events[1].Recipient}
	assert.ElementsMatch(t, []int64{10, superID}, recipients)
	for _, e := range events {
		assert.Equal(t, notify.EventReportFiled, e.Kind)
		assert.Equal(t, int64(5), e.Subject.UserID)
		assert.Equal(t, "спам", e.Detail)
	}

	reports, err := svc.ListReports(ctx, superID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, int64(1), reports[0].UserID)
	assert.Equal(t, int64(5), reports[0].TargetID)

	_, err = svc.ListReports(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc, _, gdb := setupService(t)

	createProfile(t, gdb, 1)
	createProfile(t, gdb, 2, func(p *db.Profile) { p.Premium = true })
	createProfile(t, gdb, 3, func(p *db.Profile) { p.Blocked = true })

	require.NoError(t, gdb.Create(&db.Like{FromUser: 1, ToUser: 2}).Error)
	require.NoError(t, gdb.Create(&db.Like{FromUser: 2, ToUser: 1}).Error)
	require.NoError(t, gdb.Create(&db.Like{FromUser: 3, ToUser: 1}).Error)

	st, err := svc.Stats(ctx, superID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Users)
	assert.Equal(t, int64(1), st.Premium)
	assert.Equal(t, int64(1), st.Blocked)
	assert.Equal(t, int64(3), st.Likes)
	assert.Equal(t, int64(1), st.MutualPairs)
	assert.Equal(t, int64(3), st.DistinctLikers)

	_, err = svc.Stats(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestBroadcastToleratesFailures(t *testing.T) {
	ctx := context.Background()
	svc, notifier, gdb := setupService(t)

	createProfile(t, gdb, 1)
	createProfile(t, gdb, 2)
	createProfile(t, gdb, 3)
	notifier.failFor[2] = true

	sent, err := svc.Broadcast(ctx, superID, "Привет всем!")
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.ElementsMatch(t, []int64{1, 3}, notifier.sent)

	_, err = svc.Broadcast(ctx, 1, "nope")
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestMessage(t *testing.T) {
	ctx := context.Background()
	svc, _, gdb := setupService(t)

	createProfile(t, gdb, 5)

	_, err := svc.Message(ctx, 5, 5, "hi")
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	events, err := svc.Message(ctx, superID, 5, "Ваш профиль проверен")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventAdminMessage, events[0].Kind)
	assert.Equal(t, int64(5), events[0].Recipient)

	var entry db.AuditLog
	require.NoError(t, gdb.Last(&entry).Error)
	assert.Equal(t, domain.AuditAdminMessage, entry.Kind)
	assert.Equal(t, "Ваш профиль проверен", entry.Detail)
}
