package repository

import (
	"careiq_backend/internal/model"
	"careiq_backend/internal/testutil"
	"careiq_backend/internal/util"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantRepository_ListWithNoteCounts(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewParticipantRepository(db)

	user := testutil.SeedUser(t, db, "staff@example.com")
	emma := testutil.SeedParticipant(t, db, "Emma Brown")
	jack := testutil.SeedParticipant(t, db, "Jack Wilson")

	now := time.Now().UTC()
	testutil.SeedNote(t, db, user.ID, jack.ID, false, now)
	testutil.SeedNote(t, db, user.ID, jack.ID, true, now)

	list, err := repo.ListWithNoteCounts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, emma.ID, list[0].ID)
	assert.EqualValues(t, 0, list[0].NotesCount)
	assert.Equal(t, jack.ID, list[1].ID)
	assert.EqualValues(t, 2, list[1].NotesCount)
}

func TestParticipantRepository_FindByIDMissing(t *testing.T) {
	db := testutil.DB(t)
	repo := NewParticipantRepository(db)

	_, err := repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, util.ErrParticipantNotFound)

	p := &model.Participant{Name: "Michael Chen"}
	require.NoError(t, repo.Create(context.Background(), p))
	found, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Michael Chen", found.Name)
}
