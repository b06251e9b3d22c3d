package repository

import (
	"careiq_backend/internal/model"
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ActivityRepository 以只读方式统计活动流：RP 标记的记录和助手提问
type ActivityRepository struct {
	DB *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{DB: db}
}

// CountEvents 统计 since 及之后（含边界）某用户某类事件的数量
func (r *ActivityRepository) CountEvents(ctx context.Context, userID string, kind model.ActivityKind, since time.Time) (int64, error) {
	q, err := r.eventQuery(ctx, kind)
	if err != nil {
		return 0, err
	}

	var count int64
	err = q.Where("user_id = ? AND timestamp >= ?", userID, since.UTC()).Count(&count).Error
	return count, err
}

// ActiveUserIDs 返回 since 之后产生过任一类事件的用户
func (r *ActivityRepository) ActiveUserIDs(ctx context.Context, since time.Time) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, kind := range []model.ActivityKind{model.ActivityRPFlaggedNote, model.ActivityQuery} {
		q, err := r.eventQuery(ctx, kind)
		if err != nil {
			return nil, err
		}
		var userIDs []string
		if err := q.Where("timestamp >= ?", since.UTC()).Distinct("user_id").Pluck("user_id", &userIDs).Error; err != nil {
			return nil, err
		}
		for _, id := range userIDs {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (r *ActivityRepository) eventQuery(ctx context.Context, kind model.ActivityKind) (*gorm.DB, error) {
	db := r.DB.WithContext(ctx)
	switch kind {
	case model.ActivityRPFlaggedNote:
		return db.Model(&model.Note{}).Where("rp_flag = ?", true), nil
	case model.ActivityQuery:
		return db.Model(&model.QueryLog{}), nil
	default:
		return nil, fmt.Errorf("unknown activity kind %q", kind)
	}
}
