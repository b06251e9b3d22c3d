package model

import (
	"time"

	"gorm.io/gorm"
)

// QueryLog 向 Nova 助手提出的问题，构成活动流中的 query 事件
// swagger:model QueryLog
type QueryLog struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     string    `gorm:"type:varchar(36);index:idx_query_logs_user_time;not null" json:"userId"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	Response   string    `gorm:"type:text;not null" json:"response"`
	Timestamp  time.Time `gorm:"index:idx_query_logs_user_time;not null" json:"timestamp"`
	IntentType string    `gorm:"size:32" json:"intentType"`
	SessionID  string    `gorm:"size:64;index" json:"sessionId,omitempty"`
}

func (QueryLog) TableName() string {
	return "query_logs"
}

func (m *QueryLog) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = GenerateUUID()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return nil
}
