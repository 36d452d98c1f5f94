package out

import (
	"context"

	"studytrack/internal/modules/progress/domain"
)

// ProgressSink writes to the progress service. synced is false when the
// record went to the outbox instead.
type ProgressSink interface {
	TrackVideo(ctx context.Context, record domain.VideoProgressRecord) (synced bool, err error)
	SaveCourse(ctx context.Context, progress domain.CourseProgress) (synced bool, err error)
}

type ProgressCache interface {
	Save(ctx context.Context, record domain.VideoProgressRecord) error
	// Load returns apperrors.ErrNotFound when the lesson was never sampled.
	Load(ctx context.Context, courseID, lessonID string) (domain.VideoProgressRecord, error)
}

type CompletionNotifier interface {
	LessonCompleted(ctx context.Context, courseID, lessonID string)
}
