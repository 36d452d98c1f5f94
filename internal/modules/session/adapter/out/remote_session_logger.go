package out

import (
	"context"

	outboxdto "studytrack/internal/modules/outbox/dto"
	outboxin "studytrack/internal/modules/outbox/port/in"
	"studytrack/internal/modules/session/domain"
	sessionout "studytrack/internal/modules/session/port/out"
	"studytrack/internal/platform/clock"
	"studytrack/internal/platform/logging"
	"studytrack/internal/platform/notify"
	"studytrack/internal/platform/syncclient"
)

// RemoteSessionLogger posts finalized sessions to the progress service and
// parks them in the pendingStudyLogs queue when that fails.
type RemoteSessionLogger struct {
	client   *syncclient.Client
	outbox   outboxin.Usecase
	notifier notify.Sink
	clock    clock.Clock
}

func NewRemoteSessionLogger(client *syncclient.Client, outbox outboxin.Usecase, notifier notify.Sink, clk clock.Clock) sessionout.SessionLogger {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &RemoteSessionLogger{client: client, outbox: outbox, notifier: notifier, clock: clk}
}

func (l *RemoteSessionLogger) LogSession(ctx context.Context, log domain.SessionLog) error {
	payload := syncclient.SessionLogPayload{
		Duration:  log.DurationSeconds(),
		StartTime: log.StartTime,
		EndTime:   log.EndTime,
		Progress:  log.Progress,
	}
	result := l.client.LogSession(ctx, log.CourseID, log.LessonID, payload)
	if result.OK {
		if l.outbox != nil {
			l.outbox.TriggerDrain(ctx)
		}
		return nil
	}

	logging.Warn().Str("session_id", log.SessionID).Str("reason", result.Reason).Msg("study session log failed, queued for retry")
	l.notifier.Notify(notify.Event{
		Type:     notify.EventSyncFailure,
		CourseID: log.CourseID,
		LessonID: log.LessonID,
		Reason:   result.Reason,
		At:       l.clock.Now(),
	})
	if l.outbox == nil {
		return nil
	}
	return l.outbox.Enqueue(ctx, outboxdto.EnqueueInput{
		Queue:    outboxdto.QueueSessionLogs,
		Kind:     syncclient.EndpointSessionLog,
		Endpoint: syncclient.SessionLogPath(log.CourseID, log.LessonID),
		Payload:  payload,
	})
}
