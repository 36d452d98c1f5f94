package dto

import "time"

type PlayerInput struct {
	CourseID string
	LessonID string
}

type ObserveOutput struct {
	// Accepted is false for samples that were ignored as invalid.
	Accepted     bool
	Sent         bool
	Completed    bool
	CompletedNow bool
	Percentage   float64
}

type ProgressOutput struct {
	CourseID    string
	LessonID    string
	CurrentTime float64
	Duration    float64
	Percentage  float64
	Completed   bool
	Timestamp   time.Time
}

type CourseProgressInput struct {
	CourseID   string
	Percentage float64
	Metadata   map[string]any
}

type CourseProgressOutput struct {
	CourseID   string
	Percentage float64
	// Synced is false when the write was queued for retry.
	Synced bool
}
