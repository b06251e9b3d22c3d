package repository

import (
	"careiq_backend/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type NoteRepository struct {
	DB *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *NoteRepository {
	return &NoteRepository{DB: db}
}

// NoteFilter 记录查询条件，零值字段不参与过滤
type NoteFilter struct {
	ParticipantID string
	UserID        string
	Start         *time.Time
	End           *time.Time
}

func (f NoteFilter) apply(db *gorm.DB) *gorm.DB {
	if f.ParticipantID != "" {
		db = db.Where("notes.participant_id = ?", f.ParticipantID)
	}
	if f.UserID != "" {
		db = db.Where("notes.user_id = ?", f.UserID)
	}
	if f.Start != nil {
		db = db.Where("notes.timestamp >= ?", f.Start.UTC())
	}
	if f.End != nil {
		db = db.Where("notes.timestamp <= ?", f.End.UTC())
	}
	return db
}

func (r *NoteRepository) Create(ctx context.Context, note *model.Note) error {
	return r.DB.WithContext(ctx).Create(note).Error
}

// List 按时间倒序分页返回记录，附带参与者和员工信息
func (r *NoteRepository) List(ctx context.Context, filter NoteFilter, skip, limit int) ([]model.Note, error) {
	var notes []model.Note
	q := filter.apply(r.DB.WithContext(ctx).Model(&model.Note{})).
		Preload("Participant").
		Preload("User").
		Order("notes.timestamp DESC")
	if limit > 0 {
		q = q.Offset(skip).Limit(limit)
	}
	err := q.Find(&notes).Error
	return notes, err
}

func (r *NoteRepository) Count(ctx context.Context, filter NoteFilter) (int64, error) {
	var count int64
	err := filter.apply(r.DB.WithContext(ctx).Model(&model.Note{})).Count(&count).Error
	return count, err
}

func (r *NoteRepository) CountRPFlagged(ctx context.Context, filter NoteFilter) (int64, error) {
	var count int64
	err := filter.apply(r.DB.WithContext(ctx).Model(&model.Note{})).
		Where("notes.rp_flag = ?", true).
		Count(&count).Error
	return count, err
}
