package repository

import (
	"careiq_backend/internal/model"
	"careiq_backend/internal/testutil"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_CountEventsWindow(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewActivityRepository(db)

	user := testutil.SeedUser(t, db, "a@example.com")
	other := testutil.SeedUser(t, db, "b@example.com")
	p := testutil.SeedParticipant(t, db, "Jack")

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	since := now.Add(-24 * time.Hour)

	testutil.SeedNote(t, db, user.ID, p.ID, true, since)                   // 边界，计入
	testutil.SeedNote(t, db, user.ID, p.ID, true, since.Add(-time.Second)) // 窗口外
	testutil.SeedNote(t, db, user.ID, p.ID, false, now.Add(-time.Hour))    // 未标记
	testutil.SeedNote(t, db, user.ID, p.ID, true, now.Add(-time.Hour))
	testutil.SeedNote(t, db, other.ID, p.ID, true, now.Add(-time.Hour))

	testutil.SeedQuery(t, db, user.ID, now.Add(-2*time.Hour))
	testutil.SeedQuery(t, db, user.ID, now.Add(-25*time.Hour))

	rp, err := repo.CountEvents(ctx, user.ID, model.ActivityRPFlaggedNote, since)
	require.NoError(t, err)
	assert.EqualValues(t, 2, rp)

	queries, err := repo.CountEvents(ctx, user.ID, model.ActivityQuery, since)
	require.NoError(t, err)
	assert.EqualValues(t, 1, queries)

	none, err := repo.CountEvents(ctx, "missing", model.ActivityQuery, since)
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestActivityRepository_UnknownKind(t *testing.T) {
	db := testutil.DB(t)
	repo := NewActivityRepository(db)

	_, err := repo.CountEvents(context.Background(), "u", model.ActivityKind("bogus"), time.Now())
	assert.Error(t, err)
}

func TestActivityRepository_ActiveUserIDs(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewActivityRepository(db)

	a := testutil.SeedUser(t, db, "a@example.com")
	b := testutil.SeedUser(t, db, "b@example.com")
	c := testutil.SeedUser(t, db, "c@example.com")
	p := testutil.SeedParticipant(t, db, "Emma")

	now := time.Now().UTC()
	testutil.SeedNote(t, db, a.ID, p.ID, true, now.Add(-time.Hour))
	testutil.SeedQuery(t, db, a.ID, now.Add(-time.Hour))
	testutil.SeedQuery(t, db, b.ID, now.Add(-time.Hour))
	testutil.SeedQuery(t, db, c.ID, now.Add(-48*time.Hour))

	ids, err := repo.ActiveUserIDs(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
}
