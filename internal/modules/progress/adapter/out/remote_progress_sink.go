package out

import (
	"context"

	outboxdto "studytrack/internal/modules/outbox/dto"
	outboxin "studytrack/internal/modules/outbox/port/in"
	"studytrack/internal/modules/progress/domain"
	progressout "studytrack/internal/modules/progress/port/out"
	"studytrack/internal/platform/clock"
	"studytrack/internal/platform/logging"
	"studytrack/internal/platform/notify"
	"studytrack/internal/platform/syncclient"
)

// RemoteProgressSink writes through the sync client. Anything the service
// does not accept lands in the offline_progress queue.
type RemoteProgressSink struct {
	client   *syncclient.Client
	outbox   outboxin.Usecase
	notifier notify.Sink
	clock    clock.Clock
}

func NewRemoteProgressSink(client *syncclient.Client, outbox outboxin.Usecase, notifier notify.Sink, clk clock.Clock) progressout.ProgressSink {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &RemoteProgressSink{client: client, outbox: outbox, notifier: notifier, clock: clk}
}

func (s *RemoteProgressSink) TrackVideo(ctx context.Context, record domain.VideoProgressRecord) (bool, error) {
	payload := syncclient.VideoProgressPayload{
		CurrentTime: record.CurrentTime,
		Duration:    record.Duration,
		Progress:    record.Percentage,
		Completed:   record.Completed,
	}
	result := s.client.TrackVideo(ctx, record.CourseID, record.LessonID, payload)
	return s.settle(ctx, result, record.CourseID, record.LessonID, outboxdto.EnqueueInput{
		Queue:    outboxdto.QueueVideoProgress,
		Kind:     syncclient.EndpointVideoProgress,
		Endpoint: syncclient.VideoProgressPath(record.CourseID, record.LessonID),
		Payload:  payload,
	})
}

func (s *RemoteProgressSink) SaveCourse(ctx context.Context, progress domain.CourseProgress) (bool, error) {
	payload := syncclient.CourseProgressPayload{Percentage: progress.Percentage, Metadata: progress.Metadata}
	result := s.client.SaveCourseProgress(ctx, progress.CourseID, payload)
	return s.settle(ctx, result, progress.CourseID, "", outboxdto.EnqueueInput{
		Queue:    outboxdto.QueueVideoProgress,
		Kind:     syncclient.EndpointCourseProgress,
		Endpoint: syncclient.CourseProgressPath(progress.CourseID),
		Payload:  payload,
	})
}

func (s *RemoteProgressSink) settle(ctx context.Context, result syncclient.Result, courseID, lessonID string, fallback outboxdto.EnqueueInput) (bool, error) {
	if result.OK {
		if s.outbox != nil {
			if _, err := s.outbox.Supersede(ctx, fallback.Queue, fallback.Endpoint); err != nil {
				logging.Warn().Err(err).Str("endpoint", fallback.Endpoint).Msg("drop superseded progress entries")
			}
			s.outbox.TriggerDrain(ctx)
		}
		return true, nil
	}
	logging.Warn().Str("kind", fallback.Kind).Str("course_id", courseID).Str("lesson_id", lessonID).Str("reason", result.Reason).Msg("progress write failed, queued for retry")
	s.notifier.Notify(notify.Event{
		Type:     notify.EventSyncFailure,
		CourseID: courseID,
		LessonID: lessonID,
		Reason:   result.Reason,
		At:       s.clock.Now(),
	})
	if s.outbox == nil {
		return false, nil
	}
	return false, s.outbox.Enqueue(ctx, fallback)
}
