package repository

import (
	"careiq_backend/internal/model"
	"careiq_backend/internal/util"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TrainingCompletionRepository struct {
	DB *gorm.DB
}

func NewTrainingCompletionRepository(db *gorm.DB) *TrainingCompletionRepository {
	return &TrainingCompletionRepository{DB: db}
}

// FindCompletion 记录不存在时返回 nil, nil
func (r *TrainingCompletionRepository) FindCompletion(ctx context.Context, userID, moduleID string) (*model.TrainingCompletion, error) {
	var completion model.TrainingCompletion
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		First(&completion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &completion, nil
}

// InsertCompletion 依赖 (user_id, module_id) 唯一索引，重复插入返回 util.ErrCompletionExists
func (r *TrainingCompletionRepository) InsertCompletion(ctx context.Context, completion *model.TrainingCompletion) error {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(completion)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return util.ErrCompletionExists
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrCompletionExists
	}
	return nil
}

func (r *TrainingCompletionRepository) ListByUser(ctx context.Context, userID string) ([]model.TrainingCompletion, error) {
	var completions []model.TrainingCompletion
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at").
		Find(&completions).Error
	return completions, err
}
