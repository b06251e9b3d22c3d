package service

import (
	"careiq_backend/internal/model"
	"careiq_backend/internal/repository"
	"careiq_backend/internal/util"
	"careiq_backend/pkg/logger"
	"careiq_backend/pkg/monitoring"
	"context"
	"strings"

	"go.uber.org/zap"
)

const (
	novaOutcomeAnswered = "answered"
	novaOutcomeFallback = "fallback"
	defaultQueryIntent  = "question"
)

var novaRPWords = []string{"block", "lock", "restrain", "force"}

// NovaSessionStore 多轮对话历史
type NovaSessionStore interface {
	History(ctx context.Context, userID, sessionID string) ([]repository.SessionTurn, error)
	Append(ctx context.Context, userID, sessionID string, turns ...repository.SessionTurn) error
}

type AskNovaContext struct {
	ParticipantID string `json:"participantId"`
}

type AskNovaRequest struct {
	Question  string         `json:"question" binding:"required"`
	Context   AskNovaContext `json:"context"`
	SessionID string         `json:"sessionId"`
}

type AskNovaResponse struct {
	Response       string          `json:"response"`
	Tags           []string        `json:"tags"`
	Intent         string          `json:"intent"`
	RPFlag         bool            `json:"rpFlag"`
	Alternatives   []string        `json:"alternatives"`
	Fallback       bool            `json:"fallback"`
	SessionID      string          `json:"sessionId,omitempty"`
	TrainingStatus *TrainingStatus `json:"trainingStatus,omitempty"`
}

// NovaService 面向一线员工的问答助手，每次成功回答都记为一次 query 活动
type NovaService struct {
	AI              *AIService
	QueryLogRepo    *repository.QueryLogRepository
	ParticipantRepo *repository.ParticipantRepository
	Sessions        NovaSessionStore
	Training        *TrainingService
}

func NewNovaService(
	ai *AIService,
	queryLogRepo *repository.QueryLogRepository,
	participantRepo *repository.ParticipantRepository,
	sessions NovaSessionStore,
	training *TrainingService,
) *NovaService {
	return &NovaService{
		AI:              ai,
		QueryLogRepo:    queryLogRepo,
		ParticipantRepo: participantRepo,
		Sessions:        sessions,
		Training:        training,
	}
}

func (s *NovaService) Ask(ctx context.Context, user *model.User, req AskNovaRequest) (*AskNovaResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, util.ErrEmptyQuestion
	}

	prompt := s.participantContext(ctx, req.Context.ParticipantID) + "Support worker question: " + question
	history := s.history(ctx, user.ID, req.SessionID)

	var raw rawAnalysis
	err := s.AI.ChatJSON(ctx, AssistantSystemPrompt, history, prompt, &raw)
	if err == nil && strings.TrimSpace(raw.Response) == "" {
		err = errEmptyAssistantResponse
	}
	if err != nil {
		logger.Log.Warn("Nova assistant unavailable, using fallback answer", zap.Error(err))
		monitoring.AssistantQueries.WithLabelValues(novaOutcomeFallback).Inc()
		resp := FallbackAnswer(question)
		resp.SessionID = req.SessionID
		return resp, nil
	}

	intent := raw.Intent
	if intent == "" {
		intent = defaultQueryIntent
	}
	entry := &model.QueryLog{
		UserID:     user.ID,
		Text:       question,
		Response:   raw.Response,
		IntentType: intent,
		SessionID:  req.SessionID,
	}
	if err := s.QueryLogRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	if s.Sessions != nil {
		if err := s.Sessions.Append(ctx, user.ID, req.SessionID,
			repository.SessionTurn{Role: "user", Content: prompt},
			repository.SessionTurn{Role: "assistant", Content: raw.Response},
		); err != nil {
			logger.Log.Warn("Failed to save Nova session", zap.String("session_id", req.SessionID), zap.Error(err))
		}
	}

	monitoring.AssistantQueries.WithLabelValues(novaOutcomeAnswered).Inc()

	resp := &AskNovaResponse{
		Response:     raw.Response,
		Tags:         nonNil(raw.Tags),
		Intent:       raw.Intent,
		Alternatives: nonNil(raw.Alternatives),
		SessionID:    req.SessionID,
	}
	if resp.Intent == "" {
		resp.Intent = IntentAdvice
	}
	if raw.RPFlag != nil {
		resp.RPFlag = *raw.RPFlag
	}

	status, err := s.Training.TrainingStatus(ctx, user.ID, s.Training.Now())
	if err != nil {
		logger.Log.Warn("Failed to evaluate training status", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		resp.TrainingStatus = status
	}
	return resp, nil
}

func (s *NovaService) participantContext(ctx context.Context, participantID string) string {
	if participantID == "" {
		return ""
	}
	p, err := s.ParticipantRepo.FindByID(ctx, participantID)
	if err != nil {
		return ""
	}
	return "Context: Question about participant " + p.Name + ". "
}

func (s *NovaService) history(ctx context.Context, userID, sessionID string) []AIChatMessage {
	if s.Sessions == nil || sessionID == "" {
		return nil
	}
	turns, err := s.Sessions.History(ctx, userID, sessionID)
	if err != nil {
		logger.Log.Warn("Failed to load Nova session", zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}
	msgs := make([]AIChatMessage, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, AIChatMessage{Role: t.Role, Content: t.Content})
	}
	return msgs
}

// FallbackAnswer AI 不可用时的固定答复；不写入查询日志
func FallbackAnswer(question string) *AskNovaResponse {
	lower := strings.ToLower(question)
	for _, w := range novaRPWords {
		if strings.Contains(lower, w) {
			return &AskNovaResponse{
				Response: "⚠️ This involves restrictive practices:\n\n" +
					"✓ Use verbal de-escalation\n" +
					"✓ Consider least restrictive approach\n" +
					"✓ Document thoroughly\n" +
					"✓ Seek supervisor guidance",
				Tags:   []string{"restrictive practice", "de-escalation"},
				Intent: IntentWarning,
				RPFlag: true,
				Alternatives: []string{
					"Verbal de-escalation techniques",
					"Environmental modifications",
					"Offering choices",
					"Supervisor consultation",
				},
				Fallback: true,
			}
		}
	}

	return &AskNovaResponse{
		Response: "📋 Key Principles:\n\n" +
			"✓ Prioritize dignity & choice\n" +
			"✓ Person-centered approach\n" +
			"✓ Build trust consistently\n" +
			"✓ Document interactions\n" +
			"✓ Consult team when unsure",
		Tags:         []string{"general"},
		Intent:       IntentAdvice,
		Alternatives: []string{},
		Fallback:     true,
	}
}
