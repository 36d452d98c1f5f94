package service

import (
	"fmt"
	"strings"

	"studytrack/internal/modules/progress/domain"
	"studytrack/internal/platform/clock"
	apperrors "studytrack/internal/platform/errors"
)

type ProgressService struct {
	clock      clock.Clock
	thresholds domain.Thresholds
}

func NewProgressService(clock clock.Clock, thresholds domain.Thresholds) *ProgressService {
	defaults := domain.DefaultThresholds()
	if thresholds.Time <= 0 {
		thresholds.Time = defaults.Time
	}
	if thresholds.Percent <= 0 {
		thresholds.Percent = defaults.Percent
	}
	if thresholds.Completion <= 0 || thresholds.Completion > 100 {
		thresholds.Completion = defaults.Completion
	}
	return &ProgressService{clock: clock, thresholds: thresholds}
}

func (s *ProgressService) NewGate() *domain.Gate {
	return domain.NewGate(s.thresholds)
}

// Record builds the upsert for a sample that passed the gate.
func (s *ProgressService) Record(courseID, lessonID string, currentTime, duration float64, d domain.Decision) domain.VideoProgressRecord {
	return domain.VideoProgressRecord{
		CourseID:    courseID,
		LessonID:    lessonID,
		CurrentTime: currentTime,
		Duration:    duration,
		Percentage:  d.Percentage,
		Completed:   d.State == domain.Completed,
		Timestamp:   s.clock.Now(),
	}
}

func ValidateLesson(courseID, lessonID string) error {
	if strings.TrimSpace(courseID) == "" || strings.TrimSpace(lessonID) == "" {
		return fmt.Errorf("%w: course id and lesson id are required", apperrors.ErrInvalidInput)
	}
	return nil
}

func CourseProgress(courseID string, percentage float64, metadata map[string]any) (domain.CourseProgress, error) {
	if strings.TrimSpace(courseID) == "" {
		return domain.CourseProgress{}, fmt.Errorf("%w: course id is required", apperrors.ErrInvalidInput)
	}
	if _, ok := domain.Percentage(percentage, 100); !ok {
		return domain.CourseProgress{}, fmt.Errorf("%w: percentage must be a finite, non-negative number", apperrors.ErrInvalidInput)
	}
	return domain.CourseProgress{CourseID: courseID, Percentage: domain.ClampPercent(percentage), Metadata: metadata}, nil
}
