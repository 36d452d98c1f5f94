package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"studytrack/internal/modules/session/domain"
	sessiondto "studytrack/internal/modules/session/dto"
	sessionin "studytrack/internal/modules/session/port/in"
	sessionout "studytrack/internal/modules/session/port/out"
	"studytrack/internal/modules/session/service"
	"studytrack/internal/platform/clock"
	apperrors "studytrack/internal/platform/errors"
	"studytrack/internal/platform/logging"
	"studytrack/internal/platform/metrics"
)

type Options struct {
	HeartbeatInterval time.Duration
	StaleAfter        time.Duration
	MinLogDuration    time.Duration
}

func DefaultOptions() Options {
	return Options{
		HeartbeatInterval: 60 * time.Second,
		StaleAfter:        30 * time.Minute,
		MinLogDuration:    30 * time.Second,
	}
}

// Manager owns the single open study session. Every transition runs under
// mu; only session logging leaves the lock, on its own goroutine.
type Manager struct {
	svc       *service.SessionService
	scheduler clock.Scheduler
	store     sessionout.ActiveSessionStore
	logger    sessionout.SessionLogger
	journal   sessionout.SessionJournal
	opts      Options

	mu       sync.Mutex
	current  *domain.StudySession
	stopBeat clock.CancelFunc
	restored bool
	inflight sync.WaitGroup
}

// NewManager wires the lifecycle. journal may be nil.
func NewManager(
	svc *service.SessionService,
	scheduler clock.Scheduler,
	store sessionout.ActiveSessionStore,
	logger sessionout.SessionLogger,
	journal sessionout.SessionJournal,
	opts Options,
) sessionin.Usecase {
	defaults := DefaultOptions()
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = defaults.StaleAfter
	}
	if opts.MinLogDuration < 0 {
		opts.MinLogDuration = 0
	}
	return &Manager{svc: svc, scheduler: scheduler, store: store, logger: logger, journal: journal, opts: opts}
}

func (m *Manager) Start(ctx context.Context, input sessiondto.StartInput) (sessiondto.SessionOutput, error) {
	session, err := m.svc.Start(input.CourseID, input.LessonID)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		prior := m.current.SessionID
		m.endLocked(ctx)
		logging.Info().Str("session_id", prior).Msg("open study session ended by a new start")
	}
	m.current = &session
	m.persistLocked(ctx)
	m.startHeartbeatLocked(session.SessionID)
	logging.Info().Str("session_id", session.SessionID).Str("course_id", session.CourseID).Str("lesson_id", session.LessonID).Msg("study session started")
	return toOutput(session), nil
}

// Update advances an active session. A paused session is returned as is.
func (m *Manager) Update(ctx context.Context) (sessiondto.SessionOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return sessiondto.SessionOutput{}, apperrors.ErrNoActiveSession
	}
	if m.current.State == domain.StateActive {
		updated := m.svc.Update(*m.current)
		m.current = &updated
		m.persistLocked(ctx)
	}
	return toOutput(*m.current), nil
}

func (m *Manager) Pause(ctx context.Context) (sessiondto.SessionOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return sessiondto.SessionOutput{}, apperrors.ErrNoActiveSession
	}
	paused, err := m.svc.Pause(*m.current)
	if err != nil {
		return toOutput(*m.current), err
	}
	m.stopHeartbeatLocked()
	m.current = &paused
	m.persistLocked(ctx)
	logging.Debug().Str("session_id", paused.SessionID).Float64("duration", paused.Duration).Msg("study session paused")
	return toOutput(paused), nil
}

func (m *Manager) Resume(ctx context.Context) (sessiondto.SessionOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return sessiondto.SessionOutput{}, apperrors.ErrNoActiveSession
	}
	resumed, err := m.svc.Resume(*m.current)
	if err != nil {
		return toOutput(*m.current), err
	}
	m.current = &resumed
	m.persistLocked(ctx)
	m.startHeartbeatLocked(resumed.SessionID)
	logging.Debug().Str("session_id", resumed.SessionID).Msg("study session resumed")
	return toOutput(resumed), nil
}

func (m *Manager) End(ctx context.Context) (sessiondto.EndOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return sessiondto.EndOutput{}, apperrors.ErrNoActiveSession
	}
	return m.endLocked(ctx), nil
}

// SetProgress only updates memory; the next heartbeat or transition persists it.
func (m *Manager) SetProgress(_ context.Context, percentage float64) error {
	if math.IsNaN(percentage) || math.IsInf(percentage, 0) {
		return fmt.Errorf("%w: progress must be a finite number", apperrors.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return apperrors.ErrNoActiveSession
	}
	updated := service.SetProgress(*m.current, percentage)
	m.current = &updated
	return nil
}

func (m *Manager) GetActive(_ context.Context) (sessiondto.SessionOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return sessiondto.SessionOutput{}, apperrors.ErrNoActiveSession
	}
	return toOutput(*m.current), nil
}

// Peek reads the persisted session without restoring it.
func (m *Manager) Peek(ctx context.Context) (sessiondto.SessionOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return toOutput(*m.current), nil
	}
	persisted, err := m.store.LoadActive(ctx)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	return toOutput(persisted), nil
}

// Restore runs at most once. A stale persisted session is finalized and
// logged with the duration it had; a fresh one resumes as active.
func (m *Manager) Restore(ctx context.Context) (sessiondto.RestoreOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.restored || m.current != nil {
		return sessiondto.RestoreOutput{}, nil
	}
	m.restored = true

	persisted, err := m.store.LoadActive(ctx)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNoActiveSession) {
			logging.Warn().Err(err).Msg("could not read persisted study session, starting idle")
		}
		return sessiondto.RestoreOutput{}, nil
	}
	if !persisted.IsOpen() {
		m.clearLocked(ctx)
		return sessiondto.RestoreOutput{}, nil
	}

	if persisted.IsStale(m.svc.Now(), m.opts.StaleAfter) {
		ended := m.svc.Finalize(persisted)
		m.clearLocked(ctx)
		end := m.finishLocked(ctx, ended)
		logging.Info().Str("session_id", ended.SessionID).Time("last_updated", ended.LastUpdated).Msg("stale study session finalized on restore")
		return sessiondto.RestoreOutput{Restored: true, Finalized: true, Logged: end.Logged, Session: toOutput(ended)}, nil
	}

	revived := m.svc.Revive(persisted)
	m.current = &revived
	m.persistLocked(ctx)
	m.startHeartbeatLocked(revived.SessionID)
	logging.Info().Str("session_id", revived.SessionID).Float64("duration", revived.Duration).Msg("study session resumed after restart")
	return sessiondto.RestoreOutput{Restored: true, Session: toOutput(revived)}, nil
}

func (m *Manager) Wait() {
	m.inflight.Wait()
}

func (m *Manager) Close() {
	m.mu.Lock()
	m.stopHeartbeatLocked()
	m.mu.Unlock()
	m.Wait()
}

func (m *Manager) endLocked(ctx context.Context) sessiondto.EndOutput {
	m.stopHeartbeatLocked()
	ended := m.svc.End(*m.current)
	m.current = nil
	m.clearLocked(ctx)
	return m.finishLocked(ctx, ended)
}

func (m *Manager) finishLocked(ctx context.Context, ended domain.StudySession) sessiondto.EndOutput {
	out := sessiondto.EndOutput{
		SessionID: ended.SessionID,
		CourseID:  ended.CourseID,
		LessonID:  ended.LessonID,
		Duration:  ended.Duration,
	}
	if ended.Duration < m.opts.MinLogDuration.Seconds() {
		metrics.SessionsDiscarded.Inc()
		logging.Info().Str("session_id", ended.SessionID).Float64("duration", ended.Duration).Msg("short study session discarded")
		return out
	}
	out.Logged = true
	metrics.SessionsLogged.Inc()
	m.dispatch(ctx, ended.Log())
	return out
}

// dispatch sends the log without holding mu. The send outlives ctx so a
// closing view never aborts it.
func (m *Manager) dispatch(ctx context.Context, log domain.SessionLog) {
	ctx = context.WithoutCancel(ctx)
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		if m.logger != nil {
			if err := m.logger.LogSession(ctx, log); err != nil {
				logging.Error().Err(err).Str("session_id", log.SessionID).Msg("study session log lost")
			}
		}
		if m.journal != nil {
			path, err := m.journal.Record(ctx, log)
			if err != nil {
				logging.Warn().Err(err).Str("session_id", log.SessionID).Msg("write session journal")
				return
			}
			logging.Debug().Str("session_id", log.SessionID).Str("path", path).Msg("session journal written")
		}
	}()
}

func (m *Manager) heartbeat(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.SessionID != sessionID || m.current.State != domain.StateActive {
		return
	}
	updated := m.svc.Update(*m.current)
	m.current = &updated
	m.persistLocked(context.Background())
	metrics.Heartbeats.Inc()
}

func (m *Manager) startHeartbeatLocked(sessionID string) {
	m.stopHeartbeatLocked()
	m.stopBeat = m.scheduler.Every(m.opts.HeartbeatInterval, func() { m.heartbeat(sessionID) })
}

func (m *Manager) stopHeartbeatLocked() {
	if m.stopBeat != nil {
		m.stopBeat()
		m.stopBeat = nil
	}
}

func (m *Manager) persistLocked(ctx context.Context) {
	if err := m.store.SaveActive(ctx, *m.current); err != nil {
		logging.Warn().Err(err).Str("session_id", m.current.SessionID).Msg("persist study session failed, tracking continues in memory")
	}
}

func (m *Manager) clearLocked(ctx context.Context) {
	if err := m.store.ClearActive(ctx); err != nil {
		logging.Warn().Err(err).Msg("clear persisted study session")
	}
}

func toOutput(s domain.StudySession) sessiondto.SessionOutput {
	return sessiondto.SessionOutput{
		SessionID:   s.SessionID,
		CourseID:    s.CourseID,
		LessonID:    s.LessonID,
		State:       string(s.State),
		StartTime:   s.StartTime,
		LastUpdated: s.LastUpdated,
		Duration:    s.Duration,
		Progress:    s.Progress,
	}
}
