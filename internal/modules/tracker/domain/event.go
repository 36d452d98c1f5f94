package domain

import (
	"fmt"
	"strings"

	apperrors "studytrack/internal/platform/errors"
)

// EventType names an inbound UI-layer event.
type EventType string

const (
	LessonOpened       EventType = "lesson_opened"
	LessonClosed       EventType = "lesson_closed"
	PlaybackTimeUpdate EventType = "playback_time_update"
	VisibilityPause    EventType = "visibility_pause"
	VisibilityResume   EventType = "visibility_resume"
)

type Event struct {
	Type        EventType
	CourseID    string
	LessonID    string
	CurrentTime float64
	Duration    float64
}

func (e Event) Validate() error {
	switch e.Type {
	case LessonOpened:
		if strings.TrimSpace(e.CourseID) == "" || strings.TrimSpace(e.LessonID) == "" {
			return fmt.Errorf("%w: %s needs courseId and lessonId", apperrors.ErrInvalidInput, e.Type)
		}
	case LessonClosed, PlaybackTimeUpdate, VisibilityPause, VisibilityResume:
	default:
		return fmt.Errorf("%w: unknown event %q", apperrors.ErrInvalidInput, e.Type)
	}
	return nil
}

// Lesson identifies the lesson a player is bound to.
type Lesson struct {
	CourseID string
	LessonID string
}

// Matches reports whether an event addressed to courseID/lessonID targets l.
// Empty identifiers address whatever lesson is open.
func (l Lesson) Matches(courseID, lessonID string) bool {
	return (courseID == "" || courseID == l.CourseID) && (lessonID == "" || lessonID == l.LessonID)
}
