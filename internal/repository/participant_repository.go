package repository

import (
	"careiq_backend/internal/model"
	"careiq_backend/internal/util"
	"context"
	"errors"

	"gorm.io/gorm"
)

type ParticipantRepository struct {
	DB *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{DB: db}
}

func (r *ParticipantRepository) Create(ctx context.Context, participant *model.Participant) error {
	return r.DB.WithContext(ctx).Create(participant).Error
}

func (r *ParticipantRepository) FindByID(ctx context.Context, id string) (*model.Participant, error) {
	var participant model.Participant
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrParticipantNotFound
	}
	return &participant, err
}

// ListWithNoteCounts 一次查询返回全部参与者及其记录数
func (r *ParticipantRepository) ListWithNoteCounts(ctx context.Context) ([]model.ParticipantWithCount, error) {
	var rows []struct {
		model.Participant
		NotesCount int64
	}
	err := r.DB.WithContext(ctx).
		Table("participants").
		Select("participants.*, COUNT(notes.id) AS notes_count").
		Joins("LEFT JOIN notes ON notes.participant_id = participants.id").
		Group("participants.id").
		Order("participants.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]model.ParticipantWithCount, 0, len(rows))
	for _, row := range rows {
		result = append(result, model.ParticipantWithCount{
			Participant: row.Participant,
			NotesCount:  row.NotesCount,
		})
	}
	return result, nil
}

func (r *ParticipantRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Participant{}).Count(&count).Error
	return count, err
}
