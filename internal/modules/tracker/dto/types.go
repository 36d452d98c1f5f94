package dto

// EventInput is one inbound event as the UI layer emits it.
type EventInput struct {
	Event       string  `json:"event"`
	CourseID    string  `json:"courseId,omitempty"`
	LessonID    string  `json:"lessonId,omitempty"`
	CurrentTime float64 `json:"currentTime,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
}

type EventOutput struct {
	Event     string
	SessionID string
	// Sent is set when a playback sample produced a progress upsert.
	Sent      bool
	Completed bool
	// Ignored is set when the event did not apply to the current state.
	Ignored bool
}
