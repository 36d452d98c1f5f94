package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"studytrack/internal/modules/session/domain"
	"studytrack/internal/platform/clock"
	apperrors "studytrack/internal/platform/errors"
	"studytrack/internal/platform/id"
)

// SessionService holds the pure session transitions. It keeps no state; the
// manager owns the current session.
type SessionService struct {
	clock clock.Clock
	idGen id.Generator
}

func NewSessionService(clock clock.Clock, idGen id.Generator) *SessionService {
	return &SessionService{clock: clock, idGen: idGen}
}

func (s *SessionService) Now() time.Time {
	return s.clock.Now()
}

func (s *SessionService) Start(courseID, lessonID string) (domain.StudySession, error) {
	if strings.TrimSpace(courseID) == "" || strings.TrimSpace(lessonID) == "" {
		return domain.StudySession{}, fmt.Errorf("%w: course id and lesson id are required", apperrors.ErrInvalidInput)
	}
	now := s.clock.Now()
	return domain.StudySession{
		SessionID:   s.idGen.New(),
		CourseID:    courseID,
		LessonID:    lessonID,
		StartTime:   now,
		LastUpdated: now,
		State:       domain.StateActive,
	}, nil
}

// Update advances an active session. Any other state is returned unchanged.
func (s *SessionService) Update(session domain.StudySession) domain.StudySession {
	if session.State != domain.StateActive {
		return session
	}
	return domain.Advance(session, s.clock.Now())
}

func (s *SessionService) Pause(session domain.StudySession) (domain.StudySession, error) {
	if session.State != domain.StateActive {
		return session, apperrors.ErrSessionNotActive
	}
	session = domain.Advance(session, s.clock.Now())
	session.State = domain.StatePaused
	return session, nil
}

// Resume restarts accumulation from now; the paused interval is not counted.
func (s *SessionService) Resume(session domain.StudySession) (domain.StudySession, error) {
	if session.State != domain.StatePaused {
		return session, apperrors.ErrSessionNotPaused
	}
	session.LastUpdated = s.clock.Now()
	session.State = domain.StateActive
	return session, nil
}

func (s *SessionService) End(session domain.StudySession) domain.StudySession {
	session = s.Update(session)
	end := s.clock.Now()
	session.EndTime = &end
	session.State = domain.StateEnded
	return session
}

// Finalize ends a session without adding time, closing it at its last update.
func (s *SessionService) Finalize(session domain.StudySession) domain.StudySession {
	end := session.LastUpdated
	session.EndTime = &end
	session.State = domain.StateEnded
	return session
}

// Revive resumes a restored session with its persisted duration.
func (s *SessionService) Revive(session domain.StudySession) domain.StudySession {
	session.LastUpdated = s.clock.Now()
	session.State = domain.StateActive
	return session
}

// SetProgress records the advisory completion percentage, clamped to 0..100.
// NaN leaves the session untouched.
func SetProgress(session domain.StudySession, percentage float64) domain.StudySession {
	switch {
	case math.IsNaN(percentage):
		return session
	case percentage < 0:
		percentage = 0
	case percentage > 100:
		percentage = 100
	}
	session.Progress = percentage
	return session
}
