package service

import (
	"careiq_backend/internal/repository"
	"context"
	"math"
)

// DashboardStats 首页统计
type DashboardStats struct {
	TotalNotes   int64   `json:"totalNotes"`
	RPIncidents  int64   `json:"rpIncidents"`
	MyNotes      int64   `json:"myNotes"`
	Participants int64   `json:"participants"`
	RPPercentage float64 `json:"rpPercentage"`
}

type StatsService struct {
	NoteRepo        *repository.NoteRepository
	ParticipantRepo *repository.ParticipantRepository
}

func NewStatsService(noteRepo *repository.NoteRepository, participantRepo *repository.ParticipantRepository) *StatsService {
	return &StatsService{NoteRepo: noteRepo, ParticipantRepo: participantRepo}
}

func (s *StatsService) Dashboard(ctx context.Context, userID string) (*DashboardStats, error) {
	total, err := s.NoteRepo.Count(ctx, repository.NoteFilter{})
	if err != nil {
		return nil, err
	}
	rp, err := s.NoteRepo.CountRPFlagged(ctx, repository.NoteFilter{})
	if err != nil {
		return nil, err
	}
	mine, err := s.NoteRepo.Count(ctx, repository.NoteFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	participants, err := s.ParticipantRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TotalNotes:   total,
		RPIncidents:  rp,
		MyNotes:      mine,
		Participants: participants,
	}
	if total > 0 {
		stats.RPPercentage = math.Round(float64(rp)/float64(total)*1000) / 10
	}
	return stats, nil
}
