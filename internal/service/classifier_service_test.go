package service

import (
	"careiq_backend/internal/config"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAIServer 返回一个把 content 作为唯一 choice 的 chat/completions 假服务
func newAIServer(t *testing.T, status int, content string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testAIConfig(baseURL string) config.AIConfig {
	return config.AIConfig{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		Model:          "test-model",
		TimeoutSeconds: 5 * time.Second,
	}
}

func TestKeywordAnalysis(t *testing.T) {
	a := KeywordAnalysis("Staff LOCKED DOOR and he was held down briefly")
	assert.True(t, a.RPFlag)
	assert.Equal(t, []string{"locked door", "held down"}, a.DetectedPractices)
	assert.Equal(t, IntentWarning, a.Intent)
	assert.Equal(t, SeverityMedium, a.Severity)
	assert.Contains(t, a.Response, "locked door, held down")
	assert.Len(t, a.Alternatives, 4)

	clean := KeywordAnalysis("Went for a walk to the park and had lunch.")
	assert.False(t, clean.RPFlag)
	assert.Equal(t, IntentNote, clean.Intent)
	assert.Equal(t, SeverityLow, clean.Severity)
	assert.Equal(t, "No restrictive practices detected.", clean.Response)
	assert.Empty(t, clean.DetectedPractices)
}

func TestClassifierUsesAI(t *testing.T) {
	srv, calls := newAIServer(t, http.StatusOK, "```json\n{\"rp_flag\": true, \"detected_practices\": [\"seclusion\"], \"response\": \"Consider alternatives\"}\n```")
	classifier := NewClassifierService(NewAIService(testAIConfig(srv.URL)))

	a := classifier.Analyze(context.Background(), "She was kept in her room all afternoon")
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, a.RPFlag)
	assert.Equal(t, []string{"seclusion"}, a.DetectedPractices)
	assert.Equal(t, IntentNote, a.Intent)
	assert.Equal(t, SeverityLow, a.Severity)
	assert.NotNil(t, a.Tags)
	assert.NotNil(t, a.Alternatives)
}

func TestClassifierFallsBackOnAIError(t *testing.T) {
	srv, calls := newAIServer(t, http.StatusInternalServerError, "")
	classifier := NewClassifierService(NewAIService(testAIConfig(srv.URL)))

	a := classifier.Analyze(context.Background(), "He was restrained in the chair")
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, a.RPFlag)
	assert.Equal(t, []string{"restrained"}, a.DetectedPractices)
}

func TestClassifierFallsBackOnInvalidJSON(t *testing.T) {
	srv, _ := newAIServer(t, http.StatusOK, "not json at all")
	classifier := NewClassifierService(NewAIService(testAIConfig(srv.URL)))

	a := classifier.Analyze(context.Background(), "calm day")
	assert.False(t, a.RPFlag)
	assert.Equal(t, "No restrictive practices detected.", a.Response)
}

func TestClassifierWithoutAIConfig(t *testing.T) {
	classifier := NewClassifierService(NewAIService(config.AIConfig{}))
	a := classifier.Analyze(context.Background(), "door was locked in the evening, he was locked in")
	assert.True(t, a.RPFlag)
	assert.Equal(t, []string{"locked in"}, a.DetectedPractices)
}

func TestAIServiceUpdateConfig(t *testing.T) {
	ai := NewAIService(config.AIConfig{})
	assert.False(t, ai.Enabled())

	_, err := ai.Chat(context.Background(), "", nil, "hi", false)
	assert.ErrorIs(t, err, ErrAIDisabled)

	srv, _ := newAIServer(t, http.StatusOK, "hello")
	ai.UpdateConfig(testAIConfig(srv.URL + "/"))
	require.True(t, ai.Enabled())

	out, err := ai.Chat(context.Background(), "sys", []AIChatMessage{{Role: "user", Content: "earlier"}}, "hi", false)
	require.NoError(t, err)
	assert.Equal(t, "hello", strings.TrimSpace(out))
}
