package service

import (
	"careiq_backend/internal/model"
	"careiq_backend/internal/repository"
	"careiq_backend/internal/util"
	"careiq_backend/pkg/logger"
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
)

// TrainingReportEntry 当前触发培训提示的员工
type TrainingReportEntry struct {
	User   *model.User     `json:"user"`
	Status *TrainingStatus `json:"status"`
}

// TrainingReportService 汇总窗口内所有活跃员工的培训状态，供主管查看和运维脚本使用
type TrainingReportService struct {
	ActivityRepo *repository.ActivityRepository
	UserRepo     *repository.UserRepository
	Training     *TrainingService
}

func NewTrainingReportService(activityRepo *repository.ActivityRepository, userRepo *repository.UserRepository, training *TrainingService) *TrainingReportService {
	return &TrainingReportService{
		ActivityRepo: activityRepo,
		UserRepo:     userRepo,
		Training:     training,
	}
}

// Report 高优先级在前，同优先级按窗口内事件总数降序
func (s *TrainingReportService) Report(ctx context.Context, now time.Time) ([]TrainingReportEntry, error) {
	userIDs, err := s.ActivityRepo.ActiveUserIDs(ctx, now.Add(-TrainingWindow))
	if err != nil {
		return nil, err
	}

	entries := make([]TrainingReportEntry, 0, len(userIDs))
	for _, id := range userIDs {
		status, err := s.Training.TrainingStatus(ctx, id, now)
		if err != nil {
			return nil, err
		}
		if !status.NeedsTraining {
			continue
		}

		user, err := s.UserRepo.FindByID(ctx, id)
		if errors.Is(err, util.ErrUserNotFound) {
			logger.Log.Warn("Activity references unknown user", zap.String("user_id", id))
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, TrainingReportEntry{User: user, Status: status})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Status, entries[j].Status
		if a.Priority != b.Priority {
			return a.Priority == PriorityHigh
		}
		return a.RPIncidents+a.Queries > b.RPIncidents+b.Queries
	})
	return entries, nil
}
