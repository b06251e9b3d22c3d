package repository

import (
	"careiq_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

type QueryLogRepository struct {
	DB *gorm.DB
}

func NewQueryLogRepository(db *gorm.DB) *QueryLogRepository {
	return &QueryLogRepository{DB: db}
}

func (r *QueryLogRepository) Create(ctx context.Context, entry *model.QueryLog) error {
	return r.DB.WithContext(ctx).Create(entry).Error
}
