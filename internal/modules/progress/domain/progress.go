package domain

import (
	"math"
	"time"
)

type CompletionState string

const (
	NotStarted CompletionState = "not_started"
	Completed  CompletionState = "completed"
)

// VideoProgressRecord is the watch state of one lesson as last sampled.
type VideoProgressRecord struct {
	CourseID    string    `json:"courseId"`
	LessonID    string    `json:"lessonId"`
	CurrentTime float64   `json:"currentTime"`
	Duration    float64   `json:"duration"`
	Percentage  float64   `json:"percentage"`
	Completed   bool      `json:"completed"`
	Timestamp   time.Time `json:"timestamp"`
}

type CourseProgress struct {
	CourseID   string
	Percentage float64
	Metadata   map[string]any
}

// CacheKey is the durable key of the last known-good record for a lesson.
func CacheKey(courseID, lessonID string) string {
	return "progress_" + courseID + "_" + lessonID
}

// Percentage converts a player sample to 0..100. ok is false for samples the
// recorder must ignore: non-finite values, a non-positive duration or a
// negative position.
func Percentage(currentTime, duration float64) (pct float64, ok bool) {
	if !finite(currentTime) || !finite(duration) || duration <= 0 || currentTime < 0 {
		return 0, false
	}
	return ClampPercent(currentTime / duration * 100), true
}

func ClampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

type Thresholds struct {
	// Time is the playback delta that forces an upsert.
	Time time.Duration
	// Percent is the progress delta that forces an upsert.
	Percent float64
	// Completion is the percentage above which the lesson counts as watched.
	Completion float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Time: 5 * time.Second, Percent: 5, Completion: 95}
}

// Gate tracks what was last sent for one player instance.
type Gate struct {
	thresholds  Thresholds
	lastTime    float64
	lastPercent float64
	state       CompletionState
}

func NewGate(t Thresholds) *Gate {
	return &Gate{thresholds: t, state: NotStarted}
}

type Decision struct {
	Send bool
	// CompletedNow is true only on the sample that latched completion.
	CompletedNow bool
	State        CompletionState
	Percentage   float64
}

// Observe applies the sampling gate and the completion latch. Completion
// forces a send; once Completed the state never goes back.
func (g *Gate) Observe(currentTime, percentage float64) Decision {
	completedNow := false
	if g.state == NotStarted && percentage > g.thresholds.Completion {
		g.state = Completed
		completedNow = true
	}
	send := completedNow ||
		currentTime-g.lastTime > g.thresholds.Time.Seconds() ||
		percentage-g.lastPercent > g.thresholds.Percent
	if send {
		g.lastTime = currentTime
		g.lastPercent = percentage
	}
	return Decision{Send: send, CompletedNow: completedNow, State: g.state, Percentage: percentage}
}

func (g *Gate) State() CompletionState {
	return g.state
}
