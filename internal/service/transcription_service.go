package service

import (
	"careiq_backend/internal/config"
	"careiq_backend/pkg/logger"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// DemoTranscript 未配置语音识别时返回的演示文本
const DemoTranscript = "This is a demo transcription. The participant completed their daily activities without any issues."

var ErrTranscriptionUnavailable = errors.New("speech-to-text is not configured")

// Transcriber 把一段音频转成文本
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType, filename string) (string, error)
}

// GoogleSpeechTranscriber Google Cloud Speech-to-Text 同步识别
type GoogleSpeechTranscriber struct {
	client       *speech.Client
	languageCode string
	model        string
}

func NewGoogleSpeechTranscriber(ctx context.Context, cfg config.SpeechConfig) (*GoogleSpeechTranscriber, error) {
	var opts []option.ClientOption
	if creds := strings.TrimSpace(cfg.CredentialsFile); creds != "" {
		if strings.HasPrefix(creds, "{") {
			opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
		} else {
			opts = append(opts, option.WithCredentialsFile(creds))
		}
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &GoogleSpeechTranscriber{
		client:       client,
		languageCode: cfg.LanguageCode,
		model:        cfg.Model,
	}, nil
}

func (t *GoogleSpeechTranscriber) Close() error {
	if t == nil || t.client == nil {
		return nil
	}
	return t.client.Close()
}

func (t *GoogleSpeechTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType, filename string) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	languageCode := t.languageCode
	if languageCode == "" {
		languageCode = "en-AU"
	}

	resp, err := t.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode:               languageCode,
			Model:                      t.model,
			EnableAutomaticPunctuation: true,
			Encoding:                   InferSpeechEncoding(mimeType, filename),
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("speech recognize: %w", err)
	}

	var full strings.Builder
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		text := strings.TrimSpace(alts[0].GetTranscript())
		if text == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString(" ")
		}
		full.WriteString(text)
	}
	return full.String(), nil
}

// InferSpeechEncoding 根据 MIME 类型或扩展名推断编码，未知时交给服务端识别
func InferSpeechEncoding(mimeType, filename string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case strings.Contains(m, "wav") || ext == ".wav":
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac") || ext == ".flac":
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mpeg") || strings.Contains(m, "mp3") || ext == ".mp3":
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "webm") || ext == ".webm":
		return speechpb.RecognitionConfig_WEBM_OPUS
	case strings.Contains(m, "ogg") || ext == ".ogg" || ext == ".opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

// TranscriptionService 选择识别引擎；引擎缺失或失败且允许演示回退时返回 DemoTranscript
type TranscriptionService struct {
	engine       Transcriber
	demoFallback bool
}

func NewTranscriptionService(engine Transcriber, demoFallback bool) *TranscriptionService {
	return &TranscriptionService{engine: engine, demoFallback: demoFallback}
}

func (s *TranscriptionService) Enabled() bool {
	return s.engine != nil
}

func (s *TranscriptionService) Transcribe(ctx context.Context, audio []byte, mimeType, filename string) (string, error) {
	if s.engine == nil {
		if s.demoFallback {
			return DemoTranscript, nil
		}
		return "", ErrTranscriptionUnavailable
	}

	text, err := s.engine.Transcribe(ctx, audio, mimeType, filename)
	if err != nil {
		if !s.demoFallback {
			return "", err
		}
		logger.Log.Error("Speech transcription failed, using demo transcript",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return DemoTranscript, nil
	}
	return strings.TrimSpace(text), nil
}
