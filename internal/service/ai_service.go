package service

import (
	"bytes"
	"careiq_backend/internal/config"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

var (
	ErrAIDisabled             = errors.New("AI provider is not configured")
	errEmptyAssistantResponse = errors.New("AI response has no answer text")
)

// AIService OpenAI 兼容的 chat/completions 客户端，配置可在运行时热更新
type AIService struct {
	mu     sync.RWMutex
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{config: cfg, client: &http.Client{}}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []AIChatMessage `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// UpdateConfig 配置文件变更后替换模型、地址和密钥
func (s *AIService) UpdateConfig(cfg config.AIConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

func (s *AIService) Config() config.AIConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

func (s *AIService) Enabled() bool {
	return s.Config().Enabled()
}

// ChatJSON 发送 system + 历史 + 当前问题，要求模型返回 JSON 对象并解码到 out
func (s *AIService) ChatJSON(ctx context.Context, system string, history []AIChatMessage, prompt string, out interface{}) error {
	content, err := s.Chat(ctx, system, history, prompt, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), out); err != nil {
		return fmt.Errorf("AI returned invalid JSON: %w", err)
	}
	return nil
}

func (s *AIService) Chat(ctx context.Context, system string, history []AIChatMessage, prompt string, jsonMode bool) (string, error) {
	cfg := s.Config()
	if !cfg.Enabled() {
		return "", ErrAIDisabled
	}

	messages := make([]AIChatMessage, 0, len(history)+2)
	if system != "" {
		messages = append(messages, AIChatMessage{Role: "system", Content: system})
	}
	messages = append(messages, history...)
	messages = append(messages, AIChatMessage{Role: "user", Content: prompt})

	reqBody := ChatCompletionRequest{
		Model:    cfg.Model,
		Messages: messages,
	}
	if jsonMode {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	if cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.TimeoutSeconds)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(cfg.BaseURL, "/")+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("AI API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("AI returned no choices after %s", time.Since(start).Round(time.Millisecond))
	}

	return result.Choices[0].Message.Content, nil
}

// 部分模型即使要求 JSON 仍会包一层 ```json 代码块
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
