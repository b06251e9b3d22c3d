package model

import (
	"time"

	"gorm.io/gorm"
)

type ActivityKind string

const (
	ActivityRPFlaggedNote ActivityKind = "rp_flagged_note"
	ActivityQuery         ActivityKind = "query"
)

// TrainingCompletion 用户完成培训模块的记录，(user_id, module_id) 唯一
// swagger:model TrainingCompletion
type TrainingCompletion struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string    `gorm:"type:varchar(36);uniqueIndex:idx_user_module;not null" json:"userId"`
	ModuleID    string    `gorm:"size:64;uniqueIndex:idx_user_module;not null" json:"moduleId"`
	Score       int       `gorm:"not null" json:"score"`
	CompletedAt time.Time `gorm:"not null" json:"completedAt"`
}

func (TrainingCompletion) TableName() string {
	return "training_completions"
}

// TrainingModule 静态培训目录中的模块
type TrainingModule struct {
	ID              string            `yaml:"id" json:"id"`
	Title           string            `yaml:"title" json:"title"`
	Description     string            `yaml:"description" json:"description"`
	DurationMinutes int               `yaml:"duration_minutes" json:"durationMinutes"`
	Sections        []TrainingSection `yaml:"sections" json:"sections"`
}

type TrainingSection struct {
	Title   string     `yaml:"title" json:"title"`
	Content string     `yaml:"content" json:"content"`
	Quiz    []QuizItem `yaml:"quiz" json:"quiz,omitempty"`
}

type QuizItem struct {
	Question     string   `yaml:"question" json:"question"`
	Options      []string `yaml:"options" json:"options"`
	CorrectIndex int      `yaml:"correct_index" json:"correctIndex"`
	Explanation  string   `yaml:"explanation" json:"explanation"`
}

// HasQuiz 模块是否包含测验题
func (m *TrainingModule) HasQuiz() bool {
	return len(m.QuizItems()) > 0
}

// QuizItems 按章节顺序展开的全部测验题
func (m *TrainingModule) QuizItems() []QuizItem {
	var items []QuizItem
	for _, s := range m.Sections {
		items = append(items, s.Quiz...)
	}
	return items
}

// ModuleSummary 模块摘要，用于列表和推荐
type ModuleSummary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"durationMinutes"`
}

func (m *TrainingModule) Summary() ModuleSummary {
	return ModuleSummary{
		ID:              m.ID,
		Title:           m.Title,
		Description:     m.Description,
		DurationMinutes: m.DurationMinutes,
	}
}

func (m *TrainingCompletion) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = GenerateUUID()
	}
	if m.CompletedAt.IsZero() {
		m.CompletedAt = time.Now().UTC()
	}
	return nil
}
