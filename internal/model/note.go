package model

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type NoteSource string

const (
	NoteSourceText  NoteSource = "text"
	NoteSourceVoice NoteSource = "voice"
)

// Note 进展记录，RPFlag 为 true 的记录构成活动流中的 rp_flagged_note 事件
// swagger:model Note
type Note struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ParticipantID string     `gorm:"type:varchar(36);index;not null" json:"participantId"`
	UserID        string     `gorm:"type:varchar(36);index:idx_notes_user_time;not null" json:"userId"`
	Text          string     `gorm:"type:text;not null" json:"text"`
	Timestamp     time.Time  `gorm:"index:idx_notes_user_time;not null" json:"timestamp"`
	RPFlag        bool       `gorm:"default:false;index" json:"rpFlag"`
	Analysis      string     `gorm:"type:text" json:"-"`
	AudioDuration *int       `json:"audioDuration,omitempty"`
	AudioURL      string     `gorm:"size:255" json:"audioUrl,omitempty"`
	Source        NoteSource `gorm:"type:varchar(10);default:'text'" json:"source"`

	Participant *Participant `gorm:"foreignKey:ParticipantID" json:"-"`
	User        *User        `gorm:"foreignKey:UserID" json:"-"`
}

func (Note) TableName() string {
	return "notes"
}

// RPAnalysis 分类器对文本的结构化判断
type RPAnalysis struct {
	RPFlag            bool     `json:"rp_flag"`
	DetectedPractices []string `json:"detected_practices"`
	Tags              []string `json:"tags"`
	Intent            string   `json:"intent"`
	Response          string   `json:"response"`
	Severity          string   `json:"severity"`
	Alternatives      []string `json:"alternatives"`
}

// ParsedAnalysis 解析保存的分析结果，无记录时返回 nil
func (n *Note) ParsedAnalysis() *RPAnalysis {
	if n.Analysis == "" {
		return nil
	}
	var a RPAnalysis
	if err := json.Unmarshal([]byte(n.Analysis), &a); err != nil {
		return nil
	}
	return &a
}

func (m *Note) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = GenerateUUID()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return nil
}
