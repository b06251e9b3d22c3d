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

func TestTrainingCompletionRepository_InsertAndFind(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewTrainingCompletionRepository(db)

	got, err := repo.FindCompletion(ctx, "u1", "rp-alternatives")
	require.NoError(t, err)
	assert.Nil(t, got)

	first := &model.TrainingCompletion{
		UserID:      "u1",
		ModuleID:    "rp-alternatives",
		Score:       90,
		CompletedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, repo.InsertCompletion(ctx, first))
	assert.NotEmpty(t, first.ID)

	got, err = repo.FindCompletion(ctx, "u1", "rp-alternatives")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 90, got.Score)
}

func TestTrainingCompletionRepository_DuplicateIsReported(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewTrainingCompletionRepository(db)

	require.NoError(t, repo.InsertCompletion(ctx, &model.TrainingCompletion{
		UserID: "u1", ModuleID: "pbsp-basics", Score: 80,
	}))

	err := repo.InsertCompletion(ctx, &model.TrainingCompletion{
		UserID: "u1", ModuleID: "pbsp-basics", Score: 20,
	})
	assert.ErrorIs(t, err, util.ErrCompletionExists)

	var count int64
	require.NoError(t, db.Model(&model.TrainingCompletion{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	stored, err := repo.FindCompletion(ctx, "u1", "pbsp-basics")
	require.NoError(t, err)
	assert.Equal(t, 80, stored.Score)

	// 其他用户同一模块互不影响
	require.NoError(t, repo.InsertCompletion(ctx, &model.TrainingCompletion{
		UserID: "u2", ModuleID: "pbsp-basics", Score: 70,
	}))

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
