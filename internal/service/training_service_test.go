package service

import (
	"careiq_backend/internal/model"
	"careiq_backend/internal/repository"
	"careiq_backend/internal/testutil"
	"careiq_backend/internal/util"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvent struct {
	userID string
	kind   model.ActivityKind
	at     time.Time
}

type fakeActivityStore struct {
	events []fakeEvent
	err    error
}

func (f *fakeActivityStore) add(userID string, kind model.ActivityKind, at time.Time, n int) {
	for i := 0; i < n; i++ {
		f.events = append(f.events, fakeEvent{userID: userID, kind: kind, at: at})
	}
}

func (f *fakeActivityStore) CountEvents(_ context.Context, userID string, kind model.ActivityKind, since time.Time) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for _, e := range f.events {
		if e.userID == userID && e.kind == kind && !e.at.Before(since) {
			n++
		}
	}
	return n, nil
}

type fakeCompletionStore struct {
	mu      sync.Mutex
	records map[string]model.TrainingCompletion
	// racer 在第一次插入前写入一条“并发”记录
	racer *model.TrainingCompletion
}

func newFakeCompletionStore() *fakeCompletionStore {
	return &fakeCompletionStore{records: map[string]model.TrainingCompletion{}}
}

func (f *fakeCompletionStore) FindCompletion(_ context.Context, userID, moduleID string) (*model.TrainingCompletion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userID+"/"+moduleID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeCompletionStore) InsertCompletion(_ context.Context, c *model.TrainingCompletion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.racer != nil {
		f.records[f.racer.UserID+"/"+f.racer.ModuleID] = *f.racer
		f.racer = nil
	}
	key := c.UserID + "/" + c.ModuleID
	if _, ok := f.records[key]; ok {
		return util.ErrCompletionExists
	}
	f.records[key] = *c
	return nil
}

var engineNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, activity ActivityStore, completions CompletionStore) *TrainingService {
	t.Helper()
	catalog, err := LoadTrainingCatalog("")
	require.NoError(t, err)
	return NewTrainingService(activity, completions, catalog).WithClock(func() time.Time { return engineNow })
}

func intPtr(v int) *int { return &v }

func TestNeedsTrainingThreshold(t *testing.T) {
	ctx := context.Background()
	recent := engineNow.Add(-time.Hour)

	cases := []struct {
		name    string
		rp      int
		queries int
		want    bool
	}{
		{"empty history", 0, 0, false},
		{"one rp note", 1, 0, false},
		{"one query", 0, 1, false},
		{"two rp notes", 2, 0, true},
		{"two queries", 0, 2, true},
		{"one of each", 1, 1, true},
		{"many", 4, 5, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeActivityStore{}
			store.add("u1", model.ActivityRPFlaggedNote, recent, tc.rp)
			store.add("u1", model.ActivityQuery, recent, tc.queries)
			engine := newEngine(t, store, newFakeCompletionStore())

			got, err := engine.NeedsTraining(ctx, "u1", engineNow)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNeedsTrainingIgnoresOtherUsers(t *testing.T) {
	store := &fakeActivityStore{}
	store.add("u2", model.ActivityRPFlaggedNote, engineNow, 5)
	engine := newEngine(t, store, newFakeCompletionStore())

	got, err := engine.NeedsTraining(context.Background(), "u1", engineNow)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestWindowBoundaryIsClosed(t *testing.T) {
	store := &fakeActivityStore{}
	store.add("u1", model.ActivityRPFlaggedNote, engineNow.Add(-TrainingWindow), 1)
	store.add("u1", model.ActivityQuery, engineNow.Add(-TrainingWindow-time.Nanosecond), 3)
	engine := newEngine(t, store, newFakeCompletionStore())

	counts, err := engine.WindowCounts(context.Background(), "u1", engineNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.RPIncidents)
	assert.Equal(t, int64(0), counts.Queries)

	store.add("u1", model.ActivityQuery, engineNow.Add(-TrainingWindow), 1)
	needs, err := engine.NeedsTraining(context.Background(), "u1", engineNow)
	require.NoError(t, err)
	assert.True(t, needs)
}

func TestRecommendModules(t *testing.T) {
	cases := []struct {
		name    string
		rp      int64
		queries int64
		want    []string
	}{
		{"below threshold", 1, 0, []string{}},
		{"two rp", 2, 0, []string{ModuleRPAlternatives, ModulePBSPBasics}},
		{"three queries", 0, 3, []string{ModuleDeEscalation, ModulePBSPBasics}},
		{"two queries", 0, 2, []string{ModulePBSPBasics}},
		{"one of each", 1, 1, []string{ModulePBSPBasics}},
		{"all rules fire", 2, 3, []string{ModuleRPAlternatives, ModuleDeEscalation}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := recommendModules(ActivityCounts{RPIncidents: tc.rp, Queries: tc.queries})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRecommendModulesBoundedAndInCatalog(t *testing.T) {
	catalog, err := LoadTrainingCatalog("")
	require.NoError(t, err)

	for rp := int64(0); rp <= 6; rp++ {
		for q := int64(0); q <= 6; q++ {
			counts := ActivityCounts{RPIncidents: rp, Queries: q}
			first := recommendModules(counts)
			assert.LessOrEqual(t, len(first), MaxRecommendedModules)
			assert.Equal(t, first, recommendModules(counts))
			for _, id := range first {
				assert.True(t, catalog.Has(id), id)
			}
		}
	}
}

func TestTrainingStatusScenarios(t *testing.T) {
	ctx := context.Background()
	recent := engineNow.Add(-time.Hour)

	t.Run("two rp notes", func(t *testing.T) {
		store := &fakeActivityStore{}
		store.add("u1", model.ActivityRPFlaggedNote, recent, 2)
		engine := newEngine(t, store, newFakeCompletionStore())

		status, err := engine.TrainingStatus(ctx, "u1", engineNow)
		require.NoError(t, err)
		assert.True(t, status.NeedsTraining)
		assert.Equal(t, PriorityHigh, status.Priority)
		assert.Equal(t, int64(2), status.RPIncidents)
		assert.Contains(t, status.Message, "2 RP incident")
		require.Len(t, status.RecommendedModules, 2)
		assert.Equal(t, ModuleRPAlternatives, status.RecommendedModules[0].ID)
		assert.Equal(t, ModulePBSPBasics, status.RecommendedModules[1].ID)
		assert.NotEmpty(t, status.RecommendedModules[0].Title)
		assert.Positive(t, status.RecommendedModules[0].DurationMinutes)
	})

	t.Run("three queries", func(t *testing.T) {
		store := &fakeActivityStore{}
		store.add("u1", model.ActivityQuery, recent, 3)
		engine := newEngine(t, store, newFakeCompletionStore())

		status, err := engine.TrainingStatus(ctx, "u1", engineNow)
		require.NoError(t, err)
		assert.True(t, status.NeedsTraining)
		assert.Equal(t, PriorityMedium, status.Priority)
		ids := []string{status.RecommendedModules[0].ID, status.RecommendedModules[1].ID}
		assert.Equal(t, []string{ModuleDeEscalation, ModulePBSPBasics}, ids)
	})

	t.Run("one rp note", func(t *testing.T) {
		store := &fakeActivityStore{}
		store.add("u1", model.ActivityRPFlaggedNote, recent, 1)
		engine := newEngine(t, store, newFakeCompletionStore())

		status, err := engine.TrainingStatus(ctx, "u1", engineNow)
		require.NoError(t, err)
		assert.False(t, status.NeedsTraining)
		assert.Empty(t, status.Priority)
		assert.Empty(t, status.Message)
		assert.Empty(t, status.RecommendedModules)

		ids, err := engine.RecommendModules(ctx, "u1", engineNow)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestTrainingStatusPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("db down")
	engine := newEngine(t, &fakeActivityStore{err: boom}, newFakeCompletionStore())

	_, err := engine.TrainingStatus(context.Background(), "u1", engineNow)
	assert.ErrorIs(t, err, boom)
}

func TestCompleteModuleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	completions := newFakeCompletionStore()
	engine := newEngine(t, &fakeActivityStore{}, completions)

	first, err := engine.CompleteModule(ctx, "u1", ModuleRPAlternatives, intPtr(90))
	require.NoError(t, err)
	assert.Equal(t, 90, first.Score)
	assert.Equal(t, engineNow, first.CompletedAt)

	engine.WithClock(func() time.Time { return engineNow.Add(time.Hour) })
	second, err := engine.CompleteModule(ctx, "u1", ModuleRPAlternatives, intPtr(40))
	require.NoError(t, err)
	assert.Equal(t, 90, second.Score)
	assert.Equal(t, first.CompletedAt, second.CompletedAt)
	assert.Len(t, completions.records, 1)

	done, err := engine.HasCompleted(ctx, "u1", ModuleRPAlternatives)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = engine.HasCompleted(ctx, "u1", ModuleDeEscalation)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestCompleteModuleUnknownModule(t *testing.T) {
	engine := newEngine(t, &fakeActivityStore{}, newFakeCompletionStore())

	_, err := engine.CompleteModule(context.Background(), "u1", "unknown-module", intPtr(100))
	assert.ErrorIs(t, err, util.ErrModuleNotFound)

	_, err = engine.HasCompleted(context.Background(), "u1", "unknown-module")
	assert.ErrorIs(t, err, util.ErrModuleNotFound)

	_, err = engine.GetModule("unknown-module")
	assert.ErrorIs(t, err, util.ErrModuleNotFound)
}

func TestCompleteModuleScoreDefaults(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t, &fakeActivityStore{}, newFakeCompletionStore())

	rec, err := engine.CompleteModule(ctx, "u1", ModulePBSPBasics, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultCompletionScore, rec.Score)

	rec, err = engine.CompleteModule(ctx, "u2", ModulePBSPBasics, intPtr(250))
	require.NoError(t, err)
	assert.Equal(t, 100, rec.Score)

	rec, err = engine.CompleteModule(ctx, "u3", ModulePBSPBasics, intPtr(-5))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Score)
}

func TestCompleteModuleRaceReturnsStoredRecord(t *testing.T) {
	completions := newFakeCompletionStore()
	completions.racer = &model.TrainingCompletion{
		ID:          "winner",
		UserID:      "u1",
		ModuleID:    ModuleDeEscalation,
		Score:       70,
		CompletedAt: engineNow.Add(-time.Second),
	}
	engine := newEngine(t, &fakeActivityStore{}, completions)

	rec, err := engine.CompleteModule(context.Background(), "u1", ModuleDeEscalation, intPtr(95))
	require.NoError(t, err)
	assert.Equal(t, "winner", rec.ID)
	assert.Equal(t, 70, rec.Score)
}

func TestGradeQuiz(t *testing.T) {
	engine := newEngine(t, &fakeActivityStore{}, newFakeCompletionStore())

	module, err := engine.GetModule(ModuleRPAlternatives)
	require.NoError(t, err)
	items := module.QuizItems()
	require.NotEmpty(t, items)

	answers := make([]int, len(items))
	for i, q := range items {
		answers[i] = q.CorrectIndex
	}
	score, err := engine.GradeQuiz(ModuleRPAlternatives, answers)
	require.NoError(t, err)
	assert.Equal(t, 100, score)

	score, err = engine.GradeQuiz(ModuleRPAlternatives, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, score)

	score, err = engine.GradeQuiz("documentation", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultCompletionScore, score)

	_, err = engine.GradeQuiz("unknown-module", nil)
	assert.ErrorIs(t, err, util.ErrModuleNotFound)
}

func TestTrainingEngineAgainstDatabase(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	user := testutil.SeedUser(t, db, "worker@careiq.test")
	participant := testutil.SeedParticipant(t, db, "Jack Wilson")

	testutil.SeedNote(t, db, user.ID, participant.ID, true, engineNow.Add(-2*time.Hour))
	testutil.SeedNote(t, db, user.ID, participant.ID, true, engineNow.Add(-TrainingWindow))
	testutil.SeedNote(t, db, user.ID, participant.ID, true, engineNow.Add(-25*time.Hour))
	testutil.SeedNote(t, db, user.ID, participant.ID, false, engineNow.Add(-time.Hour))
	testutil.SeedQuery(t, db, user.ID, engineNow.Add(-30*time.Minute))

	engine := newEngine(t,
		repository.NewActivityRepository(db),
		repository.NewTrainingCompletionRepository(db),
	)

	status, err := engine.TrainingStatus(ctx, user.ID, engineNow)
	require.NoError(t, err)
	assert.True(t, status.NeedsTraining)
	assert.Equal(t, int64(2), status.RPIncidents)
	assert.Equal(t, int64(1), status.Queries)
	assert.Equal(t, PriorityHigh, status.Priority)

	first, err := engine.CompleteModule(ctx, user.ID, ModuleRPAlternatives, intPtr(90))
	require.NoError(t, err)
	second, err := engine.CompleteModule(ctx, user.ID, ModuleRPAlternatives, intPtr(10))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 90, second.Score)

	var count int64
	require.NoError(t, db.Model(&model.TrainingCompletion{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
