package testutil

import (
	"careiq_backend/internal/model"
	"careiq_backend/pkg/database"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// DB 为每个测试打开独立的内存 SQLite 数据库并完成迁移
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

func SeedUser(tb testing.TB, db *gorm.DB, email string) *model.User {
	tb.Helper()
	u := &model.User{
		Subject: "sub-" + uuid.NewString(),
		Name:    "Staff",
		Email:   email,
		Role:    model.Staff,
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedParticipant(tb testing.TB, db *gorm.DB, name string) *model.Participant {
	tb.Helper()
	p := &model.Participant{Name: name}
	if err := db.Create(p).Error; err != nil {
		tb.Fatalf("seed participant: %v", err)
	}
	return p
}

func SeedNote(tb testing.TB, db *gorm.DB, userID, participantID string, rp bool, at time.Time) *model.Note {
	tb.Helper()
	n := &model.Note{
		UserID:        userID,
		ParticipantID: participantID,
		Text:          "note",
		RPFlag:        rp,
		Timestamp:     at.UTC(),
		Source:        model.NoteSourceText,
	}
	if err := db.Create(n).Error; err != nil {
		tb.Fatalf("seed note: %v", err)
	}
	return n
}

func SeedQuery(tb testing.TB, db *gorm.DB, userID string, at time.Time) *model.QueryLog {
	tb.Helper()
	q := &model.QueryLog{
		UserID:     userID,
		Text:       "question",
		Response:   "answer",
		IntentType: "question",
		Timestamp:  at.UTC(),
	}
	if err := db.Create(q).Error; err != nil {
		tb.Fatalf("seed query: %v", err)
	}
	return q
}
