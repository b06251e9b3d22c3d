package service

import (
	"careiq_backend/internal/model"
	"careiq_backend/internal/repository"
	"careiq_backend/internal/util"
	"careiq_backend/pkg/logger"
	"careiq_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNoteTextRequired = errors.New("note text is required")
	ErrUnsupportedAudio = errors.New("unsupported audio format")
	ErrAudioTooLarge    = errors.New("audio file is too large")
)

// NoteClassifier 对记录文本做限制性措施分析
type NoteClassifier interface {
	Analyze(ctx context.Context, text string) model.RPAnalysis
}

// SpeechToText 语音转文本
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte, mimeType, filename string) (string, error)
}

// AudioArchiver 归档原始音频，返回可访问的地址
type AudioArchiver interface {
	UploadFile(ctx context.Context, objectName string, localPath string, contentType string) (string, error)
	Delete(ctx context.Context, objectName string) error
}

// NoteView 返回给客户端的记录
type NoteView struct {
	ID              string            `json:"id"`
	ParticipantID   string            `json:"participantId"`
	UserID          string            `json:"userId"`
	Text            string            `json:"text"`
	Timestamp       time.Time         `json:"timestamp"`
	RPFlag          bool              `json:"rpFlag"`
	Analysis        *model.RPAnalysis `json:"analysis,omitempty"`
	ParticipantName string            `json:"participantName,omitempty"`
	UserName        string            `json:"userName,omitempty"`
	AudioDuration   *int              `json:"audioDuration,omitempty"`
	AudioURL        string            `json:"audioUrl,omitempty"`
	Source          model.NoteSource  `json:"source"`
}

func NewNoteView(n *model.Note) NoteView {
	v := NoteView{
		ID:            n.ID,
		ParticipantID: n.ParticipantID,
		UserID:        n.UserID,
		Text:          n.Text,
		Timestamp:     n.Timestamp,
		RPFlag:        n.RPFlag,
		Analysis:      n.ParsedAnalysis(),
		AudioDuration: n.AudioDuration,
		AudioURL:      n.AudioURL,
		Source:        n.Source,
	}
	if n.Participant != nil {
		v.ParticipantName = n.Participant.Name
	}
	if n.User != nil {
		v.UserName = n.User.Name
	}
	return v
}

// NoteResult 新建记录及调用者当前的培训状态
type NoteResult struct {
	Note           NoteView        `json:"note"`
	TrainingStatus *TrainingStatus `json:"trainingStatus,omitempty"`
}

// CreateNoteRequest 文本记录
type CreateNoteRequest struct {
	ParticipantID string `json:"participantId" binding:"required"`
	Text          string `json:"text" binding:"required"`
	AudioDuration *int   `json:"audioDuration"`
}

// VoiceNoteInput 上传的语音记录
type VoiceNoteInput struct {
	ParticipantID string
	Filename      string
	Audio         []byte
}

type NoteService struct {
	NoteRepo        *repository.NoteRepository
	ParticipantRepo *repository.ParticipantRepository
	Classifier      NoteClassifier
	Transcriber     SpeechToText
	Archiver        AudioArchiver
	Training        *TrainingService
}

func NewNoteService(
	noteRepo *repository.NoteRepository,
	participantRepo *repository.ParticipantRepository,
	classifier NoteClassifier,
	transcriber SpeechToText,
	archiver AudioArchiver,
	training *TrainingService,
) *NoteService {
	return &NoteService{
		NoteRepo:        noteRepo,
		ParticipantRepo: participantRepo,
		Classifier:      classifier,
		Transcriber:     transcriber,
		Archiver:        archiver,
		Training:        training,
	}
}

func (s *NoteService) CreateTextNote(ctx context.Context, user *model.User, req CreateNoteRequest) (*NoteResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrNoteTextRequired
	}

	participant, err := s.ParticipantRepo.FindByID(ctx, req.ParticipantID)
	if err != nil {
		return nil, err
	}

	note := &model.Note{
		ParticipantID: participant.ID,
		UserID:        user.ID,
		Text:          text,
		AudioDuration: req.AudioDuration,
		Source:        model.NoteSourceText,
	}
	return s.store(ctx, user, participant, note)
}

// CreateVoiceNote 归档音频、探测时长、转写、分析并保存
func (s *NoteService) CreateVoiceNote(ctx context.Context, user *model.User, in VoiceNoteInput) (*NoteResult, error) {
	if len(in.Audio) > util.MaxAudioBytes {
		return nil, ErrAudioTooLarge
	}

	participant, err := s.ParticipantRepo.FindByID(ctx, in.ParticipantID)
	if err != nil {
		return nil, err
	}

	mimeType, err := util.DetectMimeType(in.Audio, util.AllowedAudioMimeTypes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAudio, mimeType)
	}

	ext := strings.ToLower(filepath.Ext(in.Filename))
	if ext == "" {
		ext = util.DefaultAudioExt
	}

	tmp, err := os.CreateTemp("", "careiq-voice-*"+ext)
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(in.Audio); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	duration := util.EstimateAudioSeconds(len(in.Audio))
	if info, err := util.ProbeAudio(tmpPath); err == nil && info.Duration > 0 {
		duration = info.Seconds()
	} else if err != nil {
		logger.Log.Debug("ffprobe unavailable, estimating audio duration", zap.Error(err))
	}

	text, err := s.Transcriber.Transcribe(ctx, in.Audio, mimeType, in.Filename)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, util.ErrNoSpeechDetected
	}

	note := &model.Note{
		ID:            uuid.NewString(),
		ParticipantID: participant.ID,
		UserID:        user.ID,
		Text:          text,
		AudioDuration: &duration,
		Source:        model.NoteSourceVoice,
	}

	archived := ""
	if s.Archiver != nil {
		objectName := path.Join("voice-notes", time.Now().UTC().Format(util.DateFormat), note.ID+ext)
		url, err := s.Archiver.UploadFile(ctx, objectName, tmpPath, mimeType)
		if err != nil {
			logger.Log.Warn("Failed to archive voice note audio",
				zap.String("note_id", note.ID),
				zap.Error(err),
			)
		} else {
			note.AudioURL = url
			archived = objectName
		}
	}

	result, err := s.store(ctx, user, participant, note)
	if err != nil && archived != "" {
		// 记录未保存，清理已归档的音频
		if delErr := s.Archiver.Delete(ctx, archived); delErr != nil {
			logger.Log.Warn("Failed to remove orphaned voice note audio", zap.String("object", archived), zap.Error(delErr))
		}
	}
	return result, err
}

func (s *NoteService) store(ctx context.Context, user *model.User, participant *model.Participant, note *model.Note) (*NoteResult, error) {
	analysis := s.Classifier.Analyze(ctx, note.Text)
	raw, err := json.Marshal(analysis)
	if err != nil {
		return nil, err
	}
	note.RPFlag = analysis.RPFlag
	note.Analysis = string(raw)

	if err := s.NoteRepo.Create(ctx, note); err != nil {
		return nil, err
	}
	note.Participant = participant
	note.User = user

	monitoring.NotesCreated.WithLabelValues(string(note.Source), strconv.FormatBool(note.RPFlag)).Inc()
	logger.Log.Info("Note created",
		zap.String("note_id", note.ID),
		zap.String("user_id", user.ID),
		zap.String("source", string(note.Source)),
		zap.Bool("rp_flag", note.RPFlag),
	)

	return &NoteResult{
		Note:           NewNoteView(note),
		TrainingStatus: s.trainingStatus(ctx, user.ID),
	}, nil
}

// 培训状态只是附加信息，查询失败不影响已保存的记录
func (s *NoteService) trainingStatus(ctx context.Context, userID string) *TrainingStatus {
	if s.Training == nil {
		return nil
	}
	status, err := s.Training.TrainingStatus(ctx, userID, s.Training.Now())
	if err != nil {
		logger.Log.Warn("Failed to evaluate training status", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return status
}

func (s *NoteService) ListNotes(ctx context.Context, participantID string, skip, limit int) ([]NoteView, error) {
	skip, limit = util.ClampPage(skip, limit)
	notes, err := s.NoteRepo.List(ctx, repository.NoteFilter{ParticipantID: participantID}, skip, limit)
	if err != nil {
		return nil, err
	}

	views := make([]NoteView, 0, len(notes))
	for i := range notes {
		views = append(views, NewNoteView(&notes[i]))
	}
	return views, nil
}
