package out

import (
	"context"

	progressout "studytrack/internal/modules/progress/port/out"
	"studytrack/internal/platform/clock"
	"studytrack/internal/platform/notify"
)

type EventCompletionNotifier struct {
	sink  notify.Sink
	clock clock.Clock
}

func NewEventCompletionNotifier(sink notify.Sink, clk clock.Clock) progressout.CompletionNotifier {
	return &EventCompletionNotifier{sink: sink, clock: clk}
}

func (n *EventCompletionNotifier) LessonCompleted(_ context.Context, courseID, lessonID string) {
	n.sink.Notify(notify.Event{Type: notify.EventCompleted, CourseID: courseID, LessonID: lessonID, At: n.clock.Now()})
}
