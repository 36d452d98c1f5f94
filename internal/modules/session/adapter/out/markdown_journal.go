package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"studytrack/internal/modules/session/domain"
	sessionout "studytrack/internal/modules/session/port/out"
	"studytrack/internal/platform/markdown"
	"studytrack/internal/platform/slug"
)

// MarkdownJournal keeps one note per logged session under
// <dataDir>/sessions/YYYY/MM/DD for offline review.
type MarkdownJournal struct {
	dataDir string
}

func NewMarkdownJournal(dataDir string) sessionout.SessionJournal {
	return &MarkdownJournal{dataDir: dataDir}
}

func (j *MarkdownJournal) Record(_ context.Context, log domain.SessionLog) (string, error) {
	date := log.StartTime
	dir := filepath.Join(j.dataDir, "sessions", date.Format("2006"), date.Format("01"), date.Format("02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create journal dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s-%s-%s.md", date.Format("150405"), slug.Make(log.CourseID), slug.Make(log.LessonID), slug.Make(log.SessionID))
	path := filepath.Join(dir, name)

	minutes := log.Duration / 60
	meta := map[string]any{
		"schema_version":   domain.SchemaVersion,
		"id":               log.SessionID,
		"course_id":        log.CourseID,
		"lesson_id":        log.LessonID,
		"started_at":       log.StartTime.Format(time.RFC3339),
		"ended_at":         log.EndTime.Format(time.RFC3339),
		"duration_seconds": log.DurationSeconds(),
		"progress":         log.Progress,
	}
	body := fmt.Sprintf("# Study session %s\n\n- Course: %s\n- Lesson: %s\n- Duration: %.1f minutes\n- Progress: %.0f%%\n", log.SessionID, log.CourseID, log.LessonID, minutes, log.Progress)
	rendered, err := markdown.Note{Meta: meta, Body: body}.Render()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write journal note: %w", err)
	}
	return path, nil
}
