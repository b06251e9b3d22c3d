package service

import (
	"careiq_backend/internal/model"
	"careiq_backend/internal/util"
	"careiq_backend/pkg/logger"
	"careiq_backend/pkg/monitoring"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

const (
	TrainingWindow             = 24 * time.Hour
	TrainingTriggerThreshold   = 2
	RPAlternativesThreshold    = 2
	DeEscalationThreshold      = 3
	MaxRecommendedModules      = 2
	DefaultCompletionScore     = 100
	ModuleRPAlternatives       = "rp-alternatives"
	ModuleDeEscalation         = "de-escalation"
	ModulePBSPBasics           = "pbsp-basics"
	PriorityHigh               = "high"
	PriorityMedium             = "medium"
	trainingNudgeMessageFormat = "You've had %d RP incident(s) and %d Nova quer(ies) in the last 24 hours. Would you like a quick refresher?"
)

// RecommendableModuleIDs 推荐规则可能返回的模块，目录加载时校验其存在
var RecommendableModuleIDs = []string{ModuleRPAlternatives, ModuleDeEscalation, ModulePBSPBasics}

// ActivityStore 统计窗口内的活动事件
type ActivityStore interface {
	CountEvents(ctx context.Context, userID string, kind model.ActivityKind, since time.Time) (int64, error)
}

// CompletionStore 培训完成记录；重复插入须返回 util.ErrCompletionExists
type CompletionStore interface {
	FindCompletion(ctx context.Context, userID, moduleID string) (*model.TrainingCompletion, error)
	InsertCompletion(ctx context.Context, completion *model.TrainingCompletion) error
}

// ActivityCounts 窗口内的原始计数
type ActivityCounts struct {
	RPIncidents int64 `json:"rpIncidents"`
	Queries     int64 `json:"queries"`
}

func (c ActivityCounts) Total() int64 {
	return c.RPIncidents + c.Queries
}

// TrainingStatus 培训提示状态；Message、Priority、RecommendedModules 仅在 NeedsTraining 时出现
type TrainingStatus struct {
	NeedsTraining      bool                  `json:"needsTraining"`
	RPIncidents        int64                 `json:"rpIncidents"`
	Queries            int64                 `json:"queries"`
	Message            string                `json:"message,omitempty"`
	Priority           string                `json:"priority,omitempty"`
	RecommendedModules []model.ModuleSummary `json:"recommendedModules,omitempty"`
}

// TrainingService 根据最近 24 小时的活动决定是否提示培训及推荐哪些模块。
// 自身无可变状态，所有状态都在两个外部存储中。
type TrainingService struct {
	activity    ActivityStore
	completions CompletionStore
	catalog     *TrainingCatalog
	clock       func() time.Time
}

func NewTrainingService(activity ActivityStore, completions CompletionStore, catalog *TrainingCatalog) *TrainingService {
	return &TrainingService{
		activity:    activity,
		completions: completions,
		catalog:     catalog,
		clock:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock 替换完成时间所用的时钟
func (s *TrainingService) WithClock(clock func() time.Time) *TrainingService {
	s.clock = clock
	return s
}

func (s *TrainingService) Now() time.Time {
	return s.clock()
}

// WindowCounts 统计 [now-24h, now] 内的 RP 记录数与提问数
func (s *TrainingService) WindowCounts(ctx context.Context, userID string, now time.Time) (ActivityCounts, error) {
	since := now.Add(-TrainingWindow)

	rp, err := s.activity.CountEvents(ctx, userID, model.ActivityRPFlaggedNote, since)
	if err != nil {
		return ActivityCounts{}, fmt.Errorf("count rp-flagged notes: %w", err)
	}
	queries, err := s.activity.CountEvents(ctx, userID, model.ActivityQuery, since)
	if err != nil {
		return ActivityCounts{}, fmt.Errorf("count queries: %w", err)
	}
	return ActivityCounts{RPIncidents: rp, Queries: queries}, nil
}

func (s *TrainingService) NeedsTraining(ctx context.Context, userID string, now time.Time) (bool, error) {
	counts, err := s.WindowCounts(ctx, userID, now)
	if err != nil {
		return false, err
	}
	return needsTraining(counts), nil
}

func (s *TrainingService) RecommendModules(ctx context.Context, userID string, now time.Time) ([]string, error) {
	counts, err := s.WindowCounts(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	return recommendModules(counts), nil
}

func needsTraining(c ActivityCounts) bool {
	return c.Total() >= TrainingTriggerThreshold
}

// recommendModules 三条规则各自独立判断，按顺序拼接后截断到两项
func recommendModules(c ActivityCounts) []string {
	ids := make([]string, 0, len(RecommendableModuleIDs))
	if c.RPIncidents >= RPAlternativesThreshold {
		ids = append(ids, ModuleRPAlternatives)
	}
	if c.Queries >= DeEscalationThreshold {
		ids = append(ids, ModuleDeEscalation)
	}
	if c.Total() >= TrainingTriggerThreshold {
		ids = append(ids, ModulePBSPBasics)
	}
	if len(ids) > MaxRecommendedModules {
		ids = ids[:MaxRecommendedModules]
	}
	return ids
}

func (s *TrainingService) HasCompleted(ctx context.Context, userID, moduleID string) (bool, error) {
	if !s.catalog.Has(moduleID) {
		return false, fmt.Errorf("%w: %s", util.ErrModuleNotFound, moduleID)
	}
	completion, err := s.completions.FindCompletion(ctx, userID, moduleID)
	if err != nil {
		return false, err
	}
	return completion != nil, nil
}

// CompleteModule 幂等：已有记录时原样返回，不覆盖分数和时间
func (s *TrainingService) CompleteModule(ctx context.Context, userID, moduleID string, score *int) (*model.TrainingCompletion, error) {
	if !s.catalog.Has(moduleID) {
		return nil, fmt.Errorf("%w: %s", util.ErrModuleNotFound, moduleID)
	}

	existing, err := s.completions.FindCompletion(ctx, userID, moduleID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		monitoring.ModuleCompletions.WithLabelValues(moduleID, "existing").Inc()
		return existing, nil
	}

	completion := &model.TrainingCompletion{
		UserID:      userID,
		ModuleID:    moduleID,
		Score:       normalizeScore(score),
		CompletedAt: s.clock(),
	}
	if err := s.completions.InsertCompletion(ctx, completion); err != nil {
		if !errors.Is(err, util.ErrCompletionExists) {
			return nil, err
		}
		// 并发请求先写入了记录，以已存储的为准
		logger.Log.Debug("training completion raced, re-reading",
			zap.String("user_id", userID),
			zap.String("module_id", moduleID),
		)
		stored, err := s.completions.FindCompletion(ctx, userID, moduleID)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, fmt.Errorf("training completion for %s/%s reported as existing but not found", userID, moduleID)
		}
		monitoring.ModuleCompletions.WithLabelValues(moduleID, "existing").Inc()
		return stored, nil
	}

	monitoring.ModuleCompletions.WithLabelValues(moduleID, "created").Inc()
	return completion, nil
}

// GradeQuiz 按目录中的正确答案计算 0-100 的分数；没有测验的模块返回默认分
func (s *TrainingService) GradeQuiz(moduleID string, answers []int) (int, error) {
	module, err := s.catalog.Get(moduleID)
	if err != nil {
		return 0, err
	}

	items := module.QuizItems()
	if len(items) == 0 {
		return DefaultCompletionScore, nil
	}

	correct := 0
	for i, item := range items {
		if i < len(answers) && answers[i] == item.CorrectIndex {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(len(items)))), nil
}

func normalizeScore(score *int) int {
	if score == nil {
		return DefaultCompletionScore
	}
	switch {
	case *score < 0:
		return 0
	case *score > 100:
		return 100
	default:
		return *score
	}
}

func (s *TrainingService) TrainingStatus(ctx context.Context, userID string, now time.Time) (*TrainingStatus, error) {
	counts, err := s.WindowCounts(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	status := &TrainingStatus{
		NeedsTraining: needsTraining(counts),
		RPIncidents:   counts.RPIncidents,
		Queries:       counts.Queries,
	}
	if !status.NeedsTraining {
		return status, nil
	}

	status.Message = fmt.Sprintf(trainingNudgeMessageFormat, counts.RPIncidents, counts.Queries)
	status.Priority = PriorityMedium
	if counts.RPIncidents >= RPAlternativesThreshold {
		status.Priority = PriorityHigh
	}

	for _, id := range recommendModules(counts) {
		module, err := s.catalog.Get(id)
		if err != nil {
			return nil, err
		}
		status.RecommendedModules = append(status.RecommendedModules, module.Summary())
	}

	monitoring.TrainingNudges.WithLabelValues(status.Priority).Inc()
	return status, nil
}

func (s *TrainingService) ListModules() []model.ModuleSummary {
	return s.catalog.Summaries()
}

func (s *TrainingService) GetModule(moduleID string) (*model.TrainingModule, error) {
	return s.catalog.Get(moduleID)
}
