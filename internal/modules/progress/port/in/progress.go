package in

import (
	"context"

	"studytrack/internal/modules/progress/dto"
)

type Usecase interface {
	// OpenPlayer starts a recorder for one lesson player instance. Each
	// instance has its own completion latch.
	OpenPlayer(ctx context.Context, input dto.PlayerInput) (Player, error)
	LastKnown(ctx context.Context, courseID, lessonID string) (dto.ProgressOutput, error)
	SaveCourseProgress(ctx context.Context, input dto.CourseProgressInput) (dto.CourseProgressOutput, error)
	// Wait blocks until upserts from every player, open or closed, have resolved.
	Wait()
}

type Player interface {
	// Observe never blocks on the network.
	Observe(currentTime, duration float64) (dto.ObserveOutput, error)
	Completed() bool
	// Close stops accepting samples without waiting for in-flight upserts.
	Close()
}
