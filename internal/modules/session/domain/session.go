package domain

import "time"

// ActiveSessionKey is the durable key holding the single open session.
const ActiveSessionKey = "activeStudySession"

const SchemaVersion = 1

type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
	StatePaused State = "paused"
	StateEnded  State = "ended"
)

// StudySession is the one in-flight session. Duration is accumulated seconds
// and never decreases while the session is open.
type StudySession struct {
	SessionID   string     `json:"sessionId"`
	CourseID    string     `json:"courseId"`
	LessonID    string     `json:"lessonId"`
	StartTime   time.Time  `json:"startTime"`
	LastUpdated time.Time  `json:"lastUpdated"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Duration    float64    `json:"duration"`
	Progress    float64    `json:"progress"`
	State       State      `json:"state"`
}

func (s StudySession) IsOpen() bool {
	return s.State == StateActive || s.State == StatePaused
}

// IsStale reports whether the session went without an update for longer
// than staleAfter.
func (s StudySession) IsStale(now time.Time, staleAfter time.Duration) bool {
	return ElapsedSince(s.LastUpdated, now) > staleAfter
}

// SessionLog is a finalized session as sent to the log endpoint.
type SessionLog struct {
	SessionID string
	CourseID  string
	LessonID  string
	StartTime time.Time
	EndTime   time.Time
	Duration  float64
	Progress  float64
}

func (s StudySession) Log() SessionLog {
	end := s.LastUpdated
	if s.EndTime != nil {
		end = *s.EndTime
	}
	return SessionLog{
		SessionID: s.SessionID,
		CourseID:  s.CourseID,
		LessonID:  s.LessonID,
		StartTime: s.StartTime,
		EndTime:   end,
		Duration:  s.Duration,
		Progress:  s.Progress,
	}
}

// DurationSeconds is the whole-second duration reported to the service.
func (l SessionLog) DurationSeconds() int64 {
	return int64(l.Duration)
}
