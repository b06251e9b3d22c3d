package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UUIDBase 字符串主键，创建时自动生成 UUID
// swagger:model
type UUIDBase struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

func (b *UUIDBase) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	return
}

func GenerateUUID() string {
	return uuid.New().String()
}
