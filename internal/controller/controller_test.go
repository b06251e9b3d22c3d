package controller

import (
	"bytes"
	"careiq_backend/internal/config"
	"careiq_backend/internal/model"
	"careiq_backend/internal/repository"
	"careiq_backend/internal/service"
	"careiq_backend/internal/testutil"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiFixture struct {
	db          *gorm.DB
	router      *gin.Engine
	user        *model.User
	participant *model.Participant
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	catalog, err := service.LoadTrainingCatalog("")
	require.NoError(t, err)

	activity := repository.NewActivityRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	training := service.NewTrainingService(activity, repository.NewTrainingCompletionRepository(db), catalog)
	ai := service.NewAIService(config.AIConfig{})
	notes := service.NewNoteService(
		noteRepo,
		participantRepo,
		service.NewClassifierService(ai),
		service.NewTranscriptionService(nil, true),
		&service.LocalStorageProvider{Config: &config.StorageConfig{LocalPath: t.TempDir()}},
		training,
	)
	nova := service.NewNovaService(ai, repository.NewQueryLogRepository(db), participantRepo, nil, training)

	f := &apiFixture{
		db:          db,
		user:        testutil.SeedUser(t, db, "worker@careiq.test"),
		participant: testutil.SeedParticipant(t, db, "Jack Wilson"),
	}

	trainingCtl := NewTrainingController(training, service.NewTrainingReportService(activity, repository.NewUserRepository(db), training))
	participantCtl := NewParticipantController(service.NewParticipantService(participantRepo))
	noteCtl := NewNoteController(notes)
	exportCtl := NewExportController(service.NewExportService(noteRepo))

	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Set("user", f.user)
		c.Next()
	})
	api.POST("/auth/verify", NewAuthController().Verify)
	api.GET("/participants", participantCtl.List)
	api.POST("/participants", participantCtl.Create)
	api.POST("/notes", noteCtl.CreateNote)
	api.GET("/notes", noteCtl.ListNotes)
	api.POST("/voice-to-text", noteCtl.VoiceToText)
	api.POST("/ask-nova", NewNovaController(nova).Ask)
	api.GET("/training-status", trainingCtl.GetStatus)
	api.GET("/training/modules", trainingCtl.ListModules)
	api.GET("/training/modules/:id", trainingCtl.GetModule)
	api.POST("/training/modules/:id/complete", trainingCtl.CompleteModule)
	api.GET("/training/report", trainingCtl.Report)
	api.GET("/stats", NewStatsController(service.NewStatsService(noteRepo, participantRepo)).GetStats)
	api.GET("/export/:format", exportCtl.Export)
	f.router = r
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

func TestNotesAndTrainingStatus(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/notes", gin.H{"participantId": f.participant.ID, "text": "He was restrained at dinner"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first service.NoteResult
	decode(t, w, &first)
	assert.True(t, first.Note.RPFlag)
	require.NotNil(t, first.TrainingStatus)
	assert.False(t, first.TrainingStatus.NeedsTraining)

	w = f.do(t, http.MethodPost, "/api/ask-nova", gin.H{"question": "What can I try instead of locking the door?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var answer service.AskNovaResponse
	decode(t, w, &answer)
	assert.True(t, answer.Fallback)

	// 兜底回答不计入提问次数
	w = f.do(t, http.MethodGet, "/api/training-status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status service.TrainingStatus
	decode(t, w, &status)
	assert.False(t, status.NeedsTraining)
	assert.Equal(t, int64(1), status.RPIncidents)
	assert.Zero(t, status.Queries)

	w = f.do(t, http.MethodPost, "/api/notes", gin.H{"participantId": f.participant.ID, "text": "Locked door to stop him leaving"})
	require.Equal(t, http.StatusCreated, w.Code)
	var second service.NoteResult
	decode(t, w, &second)
	require.NotNil(t, second.TrainingStatus)
	assert.True(t, second.TrainingStatus.NeedsTraining)
	assert.Equal(t, service.PriorityHigh, second.TrainingStatus.Priority)
	require.Len(t, second.TrainingStatus.RecommendedModules, 2)
	assert.Equal(t, service.ModuleRPAlternatives, second.TrainingStatus.RecommendedModules[0].ID)
	assert.Equal(t, service.ModulePBSPBasics, second.TrainingStatus.RecommendedModules[1].ID)

	w = f.do(t, http.MethodGet, "/api/training/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report []service.TrainingReportEntry
	decode(t, w, &report)
	require.Len(t, report, 1)
	assert.Equal(t, f.user.ID, report[0].User.ID)

	w = f.do(t, http.MethodGet, "/api/notes?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		List  []service.NoteView `json:"list"`
		Limit int                `json:"limit"`
	}
	decode(t, w, &page)
	assert.Equal(t, 1, page.Limit)
	require.Len(t, page.List, 1)
	assert.Equal(t, "Locked door to stop him leaving", page.List[0].Text)
}

func TestNoteErrors(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/notes", gin.H{"participantId": "missing", "text": "hello"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/notes", gin.H{"participantId": f.participant.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/ask-nova", gin.H{"question": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVoiceToText(t *testing.T) {
	f := newAPIFixture(t)

	send := func(fields map[string]string, audio []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for k, v := range fields {
			require.NoError(t, mw.WriteField(k, v))
		}
		if audio != nil {
			part, err := mw.CreateFormFile("audio", "memo.wav")
			require.NoError(t, err)
			_, err = part.Write(audio)
			require.NoError(t, err)
		}
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/voice-to-text", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		return w
	}

	wav := make([]byte, 32000)
	copy(wav, "RIFF\x00\x00\x00\x00WAVEfmt ")

	w := send(map[string]string{"participant_id": f.participant.ID}, wav)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res service.NoteResult
	decode(t, w, &res)
	assert.Equal(t, service.DemoTranscript, res.Note.Text)
	assert.Equal(t, model.NoteSourceVoice, res.Note.Source)

	assert.Equal(t, http.StatusBadRequest, send(nil, wav).Code)
	assert.Equal(t, http.StatusBadRequest, send(map[string]string{"participant_id": f.participant.ID}, nil).Code)
}

func TestTrainingModules(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/training/modules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var modules []model.ModuleSummary
	decode(t, w, &modules)
	assert.NotEmpty(t, modules)

	w = f.do(t, http.MethodGet, "/api/training/modules/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/training/modules/rp-alternatives", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		ID        string `json:"id"`
		Completed bool   `json:"completed"`
	}
	decode(t, w, &detail)
	assert.Equal(t, "rp-alternatives", detail.ID)
	assert.False(t, detail.Completed)

	w = f.do(t, http.MethodPost, "/api/training/modules/rp-alternatives/complete", gin.H{"answers": []int{1, 0}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var completion model.TrainingCompletion
	decode(t, w, &completion)
	assert.Equal(t, 50, completion.Score)

	// 重复提交返回首次记录
	w = f.do(t, http.MethodPost, "/api/training/modules/rp-alternatives/complete", gin.H{"score": 100})
	require.Equal(t, http.StatusOK, w.Code)
	var again model.TrainingCompletion
	decode(t, w, &again)
	assert.Equal(t, completion.ID, again.ID)
	assert.Equal(t, 50, again.Score)

	w = f.do(t, http.MethodPost, "/api/training/modules/de-escalation/complete", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &completion)
	assert.Equal(t, service.DefaultCompletionScore, completion.Score)

	w = f.do(t, http.MethodGet, "/api/training/modules/rp-alternatives", nil)
	decode(t, w, &detail)
	assert.True(t, detail.Completed)

	w = f.do(t, http.MethodPost, "/api/training/modules/nope/complete", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParticipantsStatsAndExport(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/participants", gin.H{"name": "Emma Brown"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = f.do(t, http.MethodPost, "/api/participants", gin.H{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	testutil.SeedNote(t, f.db, f.user.ID, f.participant.ID, true, time.Now().Add(-time.Hour))
	testutil.SeedNote(t, f.db, f.user.ID, f.participant.ID, false, time.Now().Add(-time.Hour))

	w = f.do(t, http.MethodGet, "/api/participants", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var participants []model.ParticipantWithCount
	decode(t, w, &participants)
	require.Len(t, participants, 2)
	counts := map[string]int64{}
	for _, p := range participants {
		counts[p.Name] = p.NotesCount
	}
	assert.Equal(t, int64(2), counts["Jack Wilson"])
	assert.Equal(t, int64(0), counts["Emma Brown"])

	w = f.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats service.DashboardStats
	decode(t, w, &stats)
	assert.Equal(t, int64(2), stats.MyNotes)
	assert.Equal(t, 50.0, stats.RPPercentage)

	w = f.do(t, http.MethodGet, "/api/export/csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment; filename=careiq_export_"))
	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	w = f.do(t, http.MethodGet, "/api/export/json?participant_id="+f.participant.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var export service.NotesExport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &export))
	assert.Equal(t, 2, export.TotalNotes)

	w = f.do(t, http.MethodGet, "/api/export/xml", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthVerifyReturnsCurrentUser(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/auth/verify", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user model.User
	decode(t, w, &user)
	assert.Equal(t, f.user.ID, user.ID)
}
