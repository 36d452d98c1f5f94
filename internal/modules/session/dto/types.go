package dto

import (
	"time"

	"studytrack/internal/modules/session/domain"
)

// Session states as reported in SessionOutput.State.
const (
	StateActive = string(domain.StateActive)
	StatePaused = string(domain.StatePaused)
	StateEnded  = string(domain.StateEnded)
)

type StartInput struct {
	CourseID string
	LessonID string
}

type SessionOutput struct {
	SessionID   string
	CourseID    string
	LessonID    string
	State       string
	StartTime   time.Time
	LastUpdated time.Time
	Duration    float64
	Progress    float64
}

type EndOutput struct {
	SessionID string
	CourseID  string
	LessonID  string
	Duration  float64
	// Logged is false when the session was too short to report.
	Logged bool
}

type RestoreOutput struct {
	// Restored is set when a persisted session was found.
	Restored bool
	// Finalized is set when that session was stale and got logged instead
	// of resumed.
	Finalized bool
	// Logged mirrors EndOutput.Logged for a finalized session.
	Logged  bool
	Session SessionOutput
}
