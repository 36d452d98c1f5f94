package usecase

import (
	"context"
	"errors"
	"sync"

	progressdto "studytrack/internal/modules/progress/dto"
	progressin "studytrack/internal/modules/progress/port/in"
	sessiondto "studytrack/internal/modules/session/dto"
	sessionin "studytrack/internal/modules/session/port/in"
	"studytrack/internal/modules/tracker/domain"
	trackerdto "studytrack/internal/modules/tracker/dto"
	trackerin "studytrack/internal/modules/tracker/port/in"
	apperrors "studytrack/internal/platform/errors"
	"studytrack/internal/platform/logging"
)

// Interactor turns UI events into session transitions and player samples.
// One lesson is open at a time, matching the single session.
type Interactor struct {
	sessions sessionin.Usecase
	progress progressin.Usecase

	mu     sync.Mutex
	lesson *domain.Lesson
	player progressin.Player
}

func NewInteractor(sessions sessionin.Usecase, progress progressin.Usecase) trackerin.Usecase {
	return &Interactor{sessions: sessions, progress: progress}
}

func (i *Interactor) Handle(ctx context.Context, input trackerdto.EventInput) (trackerdto.EventOutput, error) {
	event := domain.Event{
		Type:        domain.EventType(input.Event),
		CourseID:    input.CourseID,
		LessonID:    input.LessonID,
		CurrentTime: input.CurrentTime,
		Duration:    input.Duration,
	}
	if err := event.Validate(); err != nil {
		return trackerdto.EventOutput{}, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	out := trackerdto.EventOutput{Event: input.Event}
	switch event.Type {
	case domain.LessonOpened:
		return i.open(ctx, event, out)
	case domain.LessonClosed:
		if i.lesson == nil || !i.lesson.Matches(event.CourseID, event.LessonID) {
			out.Ignored = true
			return out, nil
		}
		end, err := i.close(ctx)
		out.SessionID = end.SessionID
		return out, err
	case domain.PlaybackTimeUpdate:
		return i.sample(ctx, event, out)
	case domain.VisibilityPause:
		s, err := i.sessions.Pause(ctx)
		return settle(out, s, err)
	case domain.VisibilityResume:
		s, err := i.sessions.Resume(ctx)
		return settle(out, s, err)
	}
	return out, nil
}

func (i *Interactor) open(ctx context.Context, event domain.Event, out trackerdto.EventOutput) (trackerdto.EventOutput, error) {
	player, err := i.progress.OpenPlayer(ctx, progressdto.PlayerInput{CourseID: event.CourseID, LessonID: event.LessonID})
	if err != nil {
		return out, err
	}
	if i.player != nil {
		i.player.Close()
	}
	session, err := i.startOrAdopt(ctx, event)
	if err != nil {
		player.Close()
		i.player, i.lesson = nil, nil
		return out, err
	}
	i.player = player
	i.lesson = &domain.Lesson{CourseID: event.CourseID, LessonID: event.LessonID}
	out.SessionID = session.SessionID
	return out, nil
}

// startOrAdopt keeps a session restored from a previous run when the same
// lesson is opened again before anything else was opened in this process.
func (i *Interactor) startOrAdopt(ctx context.Context, event domain.Event) (sessiondto.SessionOutput, error) {
	if i.lesson == nil {
		active, err := i.sessions.GetActive(ctx)
		if err == nil && active.CourseID == event.CourseID && active.LessonID == event.LessonID {
			if active.State == sessiondto.StatePaused {
				return i.sessions.Resume(ctx)
			}
			return active, nil
		}
	}
	return i.sessions.Start(ctx, sessiondto.StartInput{CourseID: event.CourseID, LessonID: event.LessonID})
}

func (i *Interactor) sample(ctx context.Context, event domain.Event, out trackerdto.EventOutput) (trackerdto.EventOutput, error) {
	if i.player == nil || !i.lesson.Matches(event.CourseID, event.LessonID) {
		out.Ignored = true
		return out, nil
	}
	observed, err := i.player.Observe(event.CurrentTime, event.Duration)
	if err != nil {
		return out, err
	}
	if !observed.Accepted {
		out.Ignored = true
		return out, nil
	}
	out.Sent = observed.Sent
	out.Completed = observed.Completed
	if err := i.sessions.SetProgress(ctx, observed.Percentage); err != nil && !errors.Is(err, apperrors.ErrNoActiveSession) {
		logging.Debug().Err(err).Msg("session progress not updated")
	}
	return out, nil
}

func (i *Interactor) close(ctx context.Context) (sessiondto.EndOutput, error) {
	if i.player != nil {
		i.player.Close()
	}
	i.player, i.lesson = nil, nil
	end, err := i.sessions.End(ctx)
	if errors.Is(err, apperrors.ErrNoActiveSession) {
		return end, nil
	}
	return end, err
}

// settle treats a pause or resume that does not apply to the session state
// as ignored rather than failed; visibility events arrive in any order.
func settle(out trackerdto.EventOutput, s sessiondto.SessionOutput, err error) (trackerdto.EventOutput, error) {
	out.SessionID = s.SessionID
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, apperrors.ErrNoActiveSession), errors.Is(err, apperrors.ErrSessionNotActive), errors.Is(err, apperrors.ErrSessionNotPaused):
		out.Ignored = true
		return out, nil
	default:
		return out, err
	}
}

func (i *Interactor) Finish(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.lesson == nil {
		return nil
	}
	_, err := i.close(ctx)
	return err
}

func (i *Interactor) Detach() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.player != nil {
		i.player.Close()
	}
	i.player, i.lesson = nil, nil
}
