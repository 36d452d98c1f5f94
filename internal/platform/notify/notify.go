// Package notify carries the outbound events of the tracker to the UI layer:
// lesson completion and sync failure.
package notify

import (
	"io"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"studytrack/internal/platform/clock"
	"studytrack/internal/platform/logging"
	"studytrack/internal/platform/metrics"
)

type EventType string

const (
	EventCompleted   EventType = "completed"
	EventSyncFailure EventType = "sync_failure"
)

type Event struct {
	Type     EventType `json:"event"`
	CourseID string    `json:"courseId,omitempty"`
	LessonID string    `json:"lessonId,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

type Sink interface {
	Notify(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Notify(e Event) { f(e) }

type Discard struct{}

func (Discard) Notify(Event) {}

// Multi fans an event out to every sink in order.
type Multi []Sink

func (m Multi) Notify(e Event) {
	for _, s := range m {
		if s != nil {
			s.Notify(e)
		}
	}
}

// Throttle lets at most one sync_failure through per interval. Other event
// types always pass.
type Throttle struct {
	next    Sink
	clock   clock.Clock
	limiter *rate.Limiter
	mu      sync.Mutex
}

func NewThrottle(next Sink, interval time.Duration, clk clock.Clock) *Throttle {
	return &Throttle{
		next:    next,
		clock:   clk,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (t *Throttle) Notify(e Event) {
	if e.Type == EventSyncFailure {
		t.mu.Lock()
		allowed := t.limiter.AllowN(t.clock.Now(), 1)
		t.mu.Unlock()
		if !allowed {
			metrics.NotificationsSuppressed.Inc()
			return
		}
	}
	t.next.Notify(e)
}

// JSONLines writes one JSON object per event.
type JSONLines struct {
	w  io.Writer
	mu sync.Mutex
}

func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{w: w}
}

func (j *JSONLines) Notify(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		logging.Warn().Err(err).Str("event", string(e.Type)).Msg("encode notification")
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.w.Write(append(payload, '\n')); err != nil {
		logging.Warn().Err(err).Str("event", string(e.Type)).Msg("write notification")
	}
}

// Log records events in the structured log.
type Log struct{}

func (Log) Notify(e Event) {
	switch e.Type {
	case EventSyncFailure:
		logging.Warn().Str("reason", e.Reason).Msg("progress not saved, will retry")
	default:
		logging.Info().Str("event", string(e.Type)).Str("course_id", e.CourseID).Str("lesson_id", e.LessonID).Msg("notification")
	}
}
