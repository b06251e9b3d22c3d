package model

// Participant 接受支持服务的参与者
// swagger:model Participant
type Participant struct {
	UUIDBase
	Name string `gorm:"size:100;not null" json:"name"`
}

func (Participant) TableName() string {
	return "participants"
}

// ParticipantWithCount 参与者及其记录数
type ParticipantWithCount struct {
	Participant
	NotesCount int64 `json:"notesCount"`
}
