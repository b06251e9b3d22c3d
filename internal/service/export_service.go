package service

import (
	"bytes"
	"careiq_backend/internal/model"
	"careiq_backend/internal/repository"
	"careiq_backend/internal/util"
	"context"
	"encoding/csv"
	"strconv"
	"strings"
	"time"
)

const (
	ExportFormatCSV  = "csv"
	ExportFormatJSON = "json"

	unknownName = "Unknown"
)

var exportCSVHeader = []string{"Timestamp", "Staff", "Participant", "Note", "RP Flag", "RP Type", "Duration (s)"}

// ExportFilter 原始查询参数；无法解析的日期被忽略
type ExportFilter struct {
	ParticipantID string `json:"participantId"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
}

type ExportedNote struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Participant   string            `json:"participant"`
	ParticipantID string            `json:"participantId"`
	Staff         string            `json:"staff"`
	StaffID       string            `json:"staffId"`
	Text          string            `json:"text"`
	RPFlag        bool              `json:"rpFlag"`
	RPDetails     *model.RPAnalysis `json:"rpDetails"`
	AudioDuration *int              `json:"audioDuration"`
}

type NotesExport struct {
	ExportDate time.Time      `json:"exportDate"`
	TotalNotes int            `json:"totalNotes"`
	Filters    ExportFilter   `json:"filters"`
	Notes      []ExportedNote `json:"notes"`
}

type ExportService struct {
	NoteRepo *repository.NoteRepository
	clock    func() time.Time
}

func NewExportService(noteRepo *repository.NoteRepository) *ExportService {
	return &ExportService{
		NoteRepo: noteRepo,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

func ValidExportFormat(format string) bool {
	return format == ExportFormatCSV || format == ExportFormatJSON
}

// Filename 导出文件名，如 careiq_export_20260310_120000.csv
func (s *ExportService) Filename(format string) string {
	return "careiq_export_" + s.clock().Format(util.FileStampFormat) + "." + format
}

func (s *ExportService) notes(ctx context.Context, f ExportFilter) ([]model.Note, error) {
	filter := repository.NoteFilter{
		ParticipantID: f.ParticipantID,
		Start:         parseExportTime(f.StartDate),
		End:           parseExportTime(f.EndDate),
	}
	return s.NoteRepo.List(ctx, filter, 0, 0)
}

func (s *ExportService) ExportJSON(ctx context.Context, f ExportFilter) (*NotesExport, error) {
	notes, err := s.notes(ctx, f)
	if err != nil {
		return nil, err
	}

	out := &NotesExport{
		ExportDate: s.clock(),
		TotalNotes: len(notes),
		Filters:    f,
		Notes:      make([]ExportedNote, 0, len(notes)),
	}
	for i := range notes {
		n := &notes[i]
		out.Notes = append(out.Notes, ExportedNote{
			ID:            n.ID,
			Timestamp:     n.Timestamp,
			Participant:   participantName(n),
			ParticipantID: n.ParticipantID,
			Staff:         staffName(n),
			StaffID:       n.UserID,
			Text:          n.Text,
			RPFlag:        n.RPFlag,
			RPDetails:     n.ParsedAnalysis(),
			AudioDuration: n.AudioDuration,
		})
	}
	return out, nil
}

func (s *ExportService) ExportCSV(ctx context.Context, f ExportFilter) ([]byte, error) {
	notes, err := s.notes(ctx, f)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportCSVHeader); err != nil {
		return nil, err
	}

	for i := range notes {
		n := &notes[i]
		rpFlag, rpType := "No", ""
		if n.RPFlag {
			rpFlag = "Yes"
			if a := n.ParsedAnalysis(); a != nil {
				rpType = strings.Join(a.DetectedPractices, ", ")
			}
		}
		duration := ""
		if n.AudioDuration != nil && *n.AudioDuration > 0 {
			duration = strconv.Itoa(*n.AudioDuration)
		}

		if err := w.Write([]string{
			n.Timestamp.UTC().Format(util.TimeFormat),
			staffName(n),
			participantName(n),
			n.Text,
			rpFlag,
			rpType,
			duration,
		}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func parseExportTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", util.DateFormat} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func participantName(n *model.Note) string {
	if n.Participant != nil {
		return n.Participant.Name
	}
	return unknownName
}

func staffName(n *model.Note) string {
	if n.User != nil {
		return n.User.Name
	}
	return unknownName
}
