package service

import (
	"careiq_backend/internal/model"
	"careiq_backend/internal/repository"
	"context"
	"errors"
	"strings"
)

var ErrParticipantNameRequired = errors.New("participant name is required")

type ParticipantService struct {
	ParticipantRepo *repository.ParticipantRepository
}

func NewParticipantService(participantRepo *repository.ParticipantRepository) *ParticipantService {
	return &ParticipantService{ParticipantRepo: participantRepo}
}

func (s *ParticipantService) List(ctx context.Context) ([]model.ParticipantWithCount, error) {
	return s.ParticipantRepo.ListWithNoteCounts(ctx)
}

func (s *ParticipantService) Create(ctx context.Context, name string) (*model.ParticipantWithCount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrParticipantNameRequired
	}

	p := &model.Participant{Name: name}
	if err := s.ParticipantRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	return &model.ParticipantWithCount{Participant: *p}, nil
}

func (s *ParticipantService) Get(ctx context.Context, id string) (*model.Participant, error) {
	return s.ParticipantRepo.FindByID(ctx, id)
}
