package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tanishuv-bot/internal/db"
	"tanishuv-bot/internal/domain"
	"tanishuv-bot/internal/repository"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func seedProfile(t *testing.T, gdb *gorm.DB, id int64, gender, seeking domain.Gender, city string, mutate ...func(*db.Profile)) *db.Profile {
	t.Helper()
	p := &db.Profile{
		UserID:        id,
		Username:      "u",
		Name:          "n",
		Photos:        db.PhotoList{"photo-1"},
		Age:           25,
		Gender:        gender,
		SeekingGender: seeking,
		Country:       "Таджикистан",
		City:          city,
	}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

func TestProfileUpsertPreservesModerationFields(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewProfileRepository(gdb)

	seedProfile(t, gdb, 1, domain.GenderMale, domain.GenderFemale, "Душанбе")
	require.NoError(t, repo.SetBlocked(ctx, 1, true))
	require.NoError(t, repo.SetInvitedCount(ctx, 1, 3))

	// re-registration must not reset moderation or referral state
	err := repo.Upsert(ctx, &db.Profile{
		UserID:        1,
		Username:      "fresh",
		Name:          "Новое имя",
		Photos:        db.PhotoList{"photo-2"},
		Age:           26,
		Gender:        domain.GenderMale,
		SeekingGender: domain.GenderFemale,
		Country:       "Таджикистан",
		City:          "Худжанд",
	})
	assert.NoError(t, err)

	p, err := repo.Get(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, "Новое имя", p.Name)
	assert.Equal(t, "Худжанд", p.City)
	assert.True(t, p.Blocked)
	assert.Equal(t, 3, p.InvitedCount)
}

func TestNextCandidateStrictFilters(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewProfileRepository(gdb)
	inter := repository.NewInteractionRepository(gdb)

	viewer := seedProfile(t, gdb, 1, domain.GenderMale, domain.GenderFemale, "Душанбе")
	// wrong city
	seedProfile(t, gdb, 3, domain.GenderFemale, domain.GenderMale, "Худжанд")
	// blocked
	seedProfile(t, gdb, 4, domain.GenderFemale, domain.GenderMale, "Душанбе", func(p *db.Profile) { p.Blocked = true })
	// wrong gender
	seedProfile(t, gdb, 5, domain.GenderMale, domain.GenderFemale, "Душанбе")
	// her own preference does not match the viewer; still eligible
	seedProfile(t, gdb, 6, domain.GenderFemale, domain.GenderFemale, "Душанбе")
	// already acted on
	seedProfile(t, gdb, 7, domain.GenderFemale, domain.GenderMale, "Душанбе")
	_, err := inter.InsertDislike(ctx, 1, 7)
	require.NoError(t, err)

	// only the candidate's gender is matched against the viewer's preference
	got, err := repo.NextCandidate(ctx, viewer, repository.CandidateOpts{SameCity: true})
	assert.NoError(t, err)
	assert.Equal(t, int64(6), got.UserID)

	// an explicit exclusion hides the row without touching any ledger
	_, err = repo.NextCandidate(ctx, viewer, repository.CandidateOpts{SameCity: true, Exclude: []int64{6}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// once 6 is consumed the strict pool is empty
	_, err = inter.InsertSkip(ctx, 1, 6)
	require.NoError(t, err)
	_, err = repo.NextCandidate(ctx, viewer, repository.CandidateOpts{SameCity: true})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// relaxed pass drops the city filter and finds 3
	got, err = repo.NextCandidate(ctx, viewer, repository.CandidateOpts{})
	assert.NoError(t, err)
	assert.Equal(t, int64(3), got.UserID)
}

func TestNextCandidateRanking(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewProfileRepository(gdb)

	viewer := seedProfile(t, gdb, 1, domain.GenderMale, domain.GenderFemale, "Душанбе")
	old := time.Now().Add(-100 * time.Hour)
	fresh := time.Now().Add(-time.Hour)
	seedProfile(t, gdb, 2, domain.GenderFemale, domain.GenderMale, "Душанбе", func(p *db.Profile) { p.LastBoost = &fresh })
	seedProfile(t, gdb, 3, domain.GenderFemale, domain.GenderMale, "Душанбе", func(p *db.Profile) {
		p.Premium = true
		p.LastBoost = &old
	})

	// premium beats a fresher boost
	got, err := repo.NextCandidate(ctx, viewer, repository.CandidateOpts{SameCity: true})
	assert.NoError(t, err)
	assert.Equal(t, int64(3), got.UserID)
}

func TestNextCandidateOperatorReview(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewProfileRepository(gdb)
	inter := repository.NewInteractionRepository(gdb)

	viewer := seedProfile(t, gdb, 1, domain.GenderMale, domain.GenderFemale, "Душанбе")
	seedProfile(t, gdb, 2, domain.GenderFemale, domain.GenderMale, "Душанбе", func(p *db.Profile) { p.Blocked = true })
	_, err := inter.InsertLike(ctx, 1, 2)
	require.NoError(t, err)

	// normal pass sees nothing
	_, err = repo.NextCandidate(ctx, viewer, repository.CandidateOpts{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// review pass sees blocked and already-seen profiles
	got, err := repo.NextCandidate(ctx, viewer, repository.CandidateOpts{IncludeBlocked: true, IgnoreHistory: true})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), got.UserID)
}

func TestNextIncomingLiker(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewProfileRepository(gdb)

	fresh := time.Now().Add(-time.Hour)
	seedProfile(t, gdb, 99, domain.GenderFemale, domain.GenderMale, "Душанбе")
	seedProfile(t, gdb, 1, domain.GenderMale, domain.GenderFemale, "Душанбе", func(p *db.Profile) { p.LastBoost = &fresh })
	seedProfile(t, gdb, 2, domain.GenderMale, domain.GenderFemale, "Душанбе", func(p *db.Profile) { p.Premium = true })
	seedProfile(t, gdb, 3, domain.GenderMale, domain.GenderFemale, "Душанбе", func(p *db.Profile) { p.Blocked = true })

	require.NoError(t, gdb.Create(&db.Like{FromUser: 1, ToUser: 99}).Error)
	require.NoError(t, gdb.Create(&db.Like{FromUser: 2, ToUser: 99}).Error)
	require.NoError(t, gdb.Create(&db.Like{FromUser: 3, ToUser: 99}).Error)

	// candidate ranking applies: the premium liker beats the boosted one,
	// the blocked one never appears
	got, err := repo.NextIncomingLiker(ctx, 99)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), got.UserID)

	// answering moves the queue forward
	require.NoError(t, gdb.Create(&db.Dislike{FromUser: 99, ToUser: 2}).Error)
	got, err = repo.NextIncomingLiker(ctx, 99)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), got.UserID)

	require.NoError(t, gdb.Create(&db.Skip{FromUser: 99, ToUser: 1}).Error)
	_, err = repo.NextIncomingLiker(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInteractionIdempotence(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewInteractionRepository(gdb)

	inserted, err := repo.InsertLike(ctx, 1, 2)
	assert.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertLike(ctx, 1, 2)
	assert.NoError(t, err)
	assert.False(t, inserted)

	liked, err := repo.HasLiked(ctx, 1, 2)
	assert.NoError(t, err)
	assert.True(t, liked)

	liked, err = repo.HasLiked(ctx, 2, 1)
	assert.NoError(t, err)
	assert.False(t, liked)

	n, err := repo.CountLikesSince(ctx, 1, time.Now().Add(-24*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.CountLikesSince(ctx, 1, time.Now().Add(time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestInteractionStatsAndCascade(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewInteractionRepository(gdb)

	mustInsert := func(f func(context.Context, int64, int64) (bool, error), from, to int64) {
		t.Helper()
		_, err := f(ctx, from, to)
		require.NoError(t, err)
	}
	mustInsert(repo.InsertLike, 1, 2)
	mustInsert(repo.InsertLike, 2, 1) // mutual pair
	mustInsert(repo.InsertLike, 3, 1)
	mustInsert(repo.InsertDislike, 4, 1)
	mustInsert(repo.InsertSkip, 1, 5)

	mutual, err := repo.CountMutualPairs(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), mutual)

	likers, err := repo.CountDistinctLikers(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), likers)

	assert.NoError(t, repo.DeleteAllFor(ctx, 1))
	total, err := repo.CountLikes(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), total)

	var skips int64
	require.NoError(t, gdb.Model(&db.Skip{}).Count(&skips).Error)
	assert.Equal(t, int64(0), skips)
}

func TestInvitationInsertIdempotent(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewInvitationRepository(gdb)

	inserted, err := repo.Insert(ctx, 10, 20)
	assert.NoError(t, err)
	assert.True(t, inserted)

	// same pair again is absorbed
	inserted, err = repo.Insert(ctx, 10, 20)
	assert.NoError(t, err)
	assert.False(t, inserted)

	// a different inviter of the same user is a new pair
	inserted, err = repo.Insert(ctx, 11, 20)
	assert.NoError(t, err)
	assert.True(t, inserted)

	n, err := repo.CountByInviter(ctx, 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.CountByInviter(ctx, 11)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAdminRoster(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewAdminRepository(gdb)

	ok, err := repo.IsAdmin(ctx, 7)
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, repo.Add(ctx, 7))
	assert.NoError(t, repo.Add(ctx, 7)) // idempotent

	ok, err = repo.IsAdmin(ctx, 7)
	assert.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, repo.Remove(ctx, 7))
	ok, err = repo.IsAdmin(ctx, 7)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestAuditReports(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewAuditRepository(gdb)

	require.NoError(t, repo.Record(ctx, &db.AuditLog{UserID: 1, Kind: domain.AuditLiked, TargetID: 2}))
	require.NoError(t, repo.Record(ctx, &db.AuditLog{UserID: 1, Kind: domain.AuditReported, TargetID: 3, Detail: "спам"}))
	require.NoError(t, repo.Record(ctx, &db.AuditLog{UserID: 4, Kind: domain.AuditReported, TargetID: 1, Detail: "фейк"}))

	reports, err := repo.ListReports(ctx, 10)
	assert.NoError(t, err)
	require.Len(t, reports, 2)
	// newest first
	assert.Equal(t, "фейк", reports[0].Detail)

	trail, err := repo.ListByUser(ctx, 1, 10)
	assert.NoError(t, err)
	assert.Len(t, trail, 2)

	// deleting user 1 keeps the report filed against them
	assert.NoError(t, repo.DeleteFor(ctx, 1))
	reports, err = repo.ListReports(ctx, 10)
	assert.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, int64(4), reports[0].UserID)
}
