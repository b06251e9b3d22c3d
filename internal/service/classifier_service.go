package service

import (
	"careiq_backend/internal/model"
	"careiq_backend/pkg/logger"
	"careiq_backend/pkg/monitoring"
	"context"
	"strings"

	"go.uber.org/zap"
)

const (
	IntentNote    = "note"
	IntentWarning = "warning"
	IntentAdvice  = "advice"

	SeverityLow    = "low"
	SeverityMedium = "medium"

	classifierBackendAI       = "ai"
	classifierBackendFallback = "fallback"
)

// AssistantSystemPrompt Nova 助手和记录分析共用的系统提示词
const AssistantSystemPrompt = `You are Nova, the CareIQ Assistant for disability support workers in Australia.
You help staff write progress notes and respond to behaviours of concern using
positive behaviour support (PBS) principles and the least restrictive approach.
A restrictive practice is any intervention that restricts a person's rights or freedom
of movement: physical, environmental, chemical or mechanical restraint and seclusion.

Always answer with a single JSON object with these fields:
  "rp_flag": true when a restrictive practice is described or proposed,
  "detected_practices": list of the restrictive practices found (may be empty),
  "tags": short topic tags,
  "intent": one of "note", "warning", "advice", "question",
  "response": a short, practical reply for the support worker,
  "severity": one of "low", "medium", "high",
  "alternatives": least restrictive alternatives (may be empty).`

var rpKeywords = []string{
	"blocked door", "locked door", "restrained", "tied", "forced",
	"prevented from leaving", "held down", "chemical restraint",
	"physical restraint", "locked in", "can't leave", "won't let",
}

var rpFallbackAlternatives = []string{
	"Use verbal de-escalation techniques",
	"Offer choices and alternatives",
	"Modify the environment to reduce triggers",
	"Seek supervisor support",
}

// ClassifierService 判断一段记录文本是否描述了限制性措施
type ClassifierService struct {
	ai *AIService
}

func NewClassifierService(ai *AIService) *ClassifierService {
	return &ClassifierService{ai: ai}
}

// Analyze 优先使用 AI 分析，任何失败都回退到关键词匹配，从不返回错误
func (s *ClassifierService) Analyze(ctx context.Context, text string) model.RPAnalysis {
	if s.ai != nil && s.ai.Enabled() {
		var raw rawAnalysis
		err := s.ai.ChatJSON(ctx, AssistantSystemPrompt, nil, "Analyze this note for restrictive practices: "+text, &raw)
		if err == nil {
			monitoring.ClassifierResults.WithLabelValues(classifierBackendAI).Inc()
			return raw.withDefaults()
		}
		logger.Log.Warn("AI analysis failed, using keyword detection", zap.Error(err))
	}

	monitoring.ClassifierResults.WithLabelValues(classifierBackendFallback).Inc()
	return KeywordAnalysis(text)
}

// rawAnalysis 区分模型缺省的字段和显式给出的空值
type rawAnalysis struct {
	RPFlag            *bool    `json:"rp_flag"`
	DetectedPractices []string `json:"detected_practices"`
	Tags              []string `json:"tags"`
	Intent            string   `json:"intent"`
	Response          string   `json:"response"`
	Severity          string   `json:"severity"`
	Alternatives      []string `json:"alternatives"`
}

func (r rawAnalysis) withDefaults() model.RPAnalysis {
	a := model.RPAnalysis{
		DetectedPractices: nonNil(r.DetectedPractices),
		Tags:              nonNil(r.Tags),
		Intent:            r.Intent,
		Response:          r.Response,
		Severity:          r.Severity,
		Alternatives:      nonNil(r.Alternatives),
	}
	if r.RPFlag != nil {
		a.RPFlag = *r.RPFlag
	}
	if a.Intent == "" {
		a.Intent = IntentNote
	}
	if a.Severity == "" {
		a.Severity = SeverityLow
	}
	return a
}

// KeywordAnalysis AI 不可用时的关键词检测
func KeywordAnalysis(text string) model.RPAnalysis {
	lower := strings.ToLower(text)

	var detected []string
	for _, kw := range rpKeywords {
		if strings.Contains(lower, kw) {
			detected = append(detected, kw)
		}
	}

	if len(detected) == 0 {
		return model.RPAnalysis{
			RPFlag:            false,
			DetectedPractices: []string{},
			Tags:              []string{},
			Intent:            IntentNote,
			Response:          "No restrictive practices detected.",
			Severity:          SeverityLow,
			Alternatives:      []string{},
		}
	}

	return model.RPAnalysis{
		RPFlag:            true,
		DetectedPractices: detected,
		Tags:              []string{"restrictive practice"},
		Intent:            IntentWarning,
		Response: "⚠️ Restrictive practices detected: " + strings.Join(detected, ", ") +
			". Consider alternatives like verbal de-escalation, offering choices, or environmental modifications.",
		Severity:     SeverityMedium,
		Alternatives: append([]string(nil), rpFallbackAlternatives...),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
