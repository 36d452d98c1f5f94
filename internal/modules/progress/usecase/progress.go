package usecase

import (
	"context"
	"errors"
	"sync"

	"studytrack/internal/modules/progress/domain"
	progressdto "studytrack/internal/modules/progress/dto"
	progressin "studytrack/internal/modules/progress/port/in"
	progressout "studytrack/internal/modules/progress/port/out"
	"studytrack/internal/modules/progress/service"
	apperrors "studytrack/internal/platform/errors"
	"studytrack/internal/platform/logging"
	"studytrack/internal/platform/metrics"
)

type Interactor struct {
	svc        *service.ProgressService
	sink       progressout.ProgressSink
	cache      progressout.ProgressCache
	completion progressout.CompletionNotifier

	// sends tracks upserts of every player, including closed ones.
	sends sync.WaitGroup
}

func NewInteractor(svc *service.ProgressService, sink progressout.ProgressSink, cache progressout.ProgressCache, completion progressout.CompletionNotifier) progressin.Usecase {
	return &Interactor{svc: svc, sink: sink, cache: cache, completion: completion}
}

func (i *Interactor) OpenPlayer(ctx context.Context, input progressdto.PlayerInput) (progressin.Player, error) {
	if err := service.ValidateLesson(input.CourseID, input.LessonID); err != nil {
		return nil, err
	}
	return &player{
		ctx:      context.WithoutCancel(ctx),
		owner:    i,
		courseID: input.CourseID,
		lessonID: input.LessonID,
		gate:     i.svc.NewGate(),
	}, nil
}

// Wait blocks until every dispatched upsert has resolved.
func (i *Interactor) Wait() {
	i.sends.Wait()
}

func (i *Interactor) LastKnown(ctx context.Context, courseID, lessonID string) (progressdto.ProgressOutput, error) {
	if err := service.ValidateLesson(courseID, lessonID); err != nil {
		return progressdto.ProgressOutput{}, err
	}
	if i.cache == nil {
		return progressdto.ProgressOutput{}, apperrors.ErrNotFound
	}
	record, err := i.cache.Load(ctx, courseID, lessonID)
	if err != nil {
		return progressdto.ProgressOutput{}, err
	}
	return toOutput(record), nil
}

func (i *Interactor) SaveCourseProgress(ctx context.Context, input progressdto.CourseProgressInput) (progressdto.CourseProgressOutput, error) {
	progress, err := service.CourseProgress(input.CourseID, input.Percentage, input.Metadata)
	if err != nil {
		return progressdto.CourseProgressOutput{}, err
	}
	synced, err := i.sink.SaveCourse(ctx, progress)
	if err != nil {
		return progressdto.CourseProgressOutput{}, err
	}
	return progressdto.CourseProgressOutput{CourseID: progress.CourseID, Percentage: progress.Percentage, Synced: synced}, nil
}

// player is one lesson player instance. The gate and its completion latch
// live and die with it.
type player struct {
	ctx      context.Context
	owner    *Interactor
	courseID string
	lessonID string

	mu     sync.Mutex
	gate   *domain.Gate
	closed bool
	seq    uint64

	// sendMu orders upserts; delivered is the newest seq handed to the sink.
	sendMu    sync.Mutex
	delivered uint64
}

func (p *player) Observe(currentTime, duration float64) (progressdto.ObserveOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return progressdto.ObserveOutput{}, apperrors.ErrPlayerClosed
	}
	pct, ok := domain.Percentage(currentTime, duration)
	if !ok {
		return progressdto.ObserveOutput{}, nil
	}

	d := p.gate.Observe(currentTime, pct)
	out := progressdto.ObserveOutput{
		Accepted:     true,
		Sent:         d.Send,
		Completed:    d.State == domain.Completed,
		CompletedNow: d.CompletedNow,
		Percentage:   d.Percentage,
	}
	if !d.Send {
		return out, nil
	}

	record := p.owner.svc.Record(p.courseID, p.lessonID, currentTime, duration, d)
	p.cacheRecord(record)
	p.upsert(record)
	if d.CompletedNow && p.owner.completion != nil {
		p.owner.completion.LessonCompleted(p.ctx, p.courseID, p.lessonID)
	}
	return out, nil
}

func (p *player) Completed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gate.State() == domain.Completed
}

// Close returns at once. Upserts already dispatched resolve on their own.
func (p *player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *player) cacheRecord(record domain.VideoProgressRecord) {
	if p.owner.cache == nil {
		return
	}
	if err := p.owner.cache.Save(p.ctx, record); err != nil {
		logging.Warn().Err(err).Str("course_id", record.CourseID).Str("lesson_id", record.LessonID).Msg("cache video progress")
	}
}

// upsert runs on its own goroutine so playback never waits for the network.
// A record that finds a newer one from the same player already delivered is
// dropped.
func (p *player) upsert(record domain.VideoProgressRecord) {
	metrics.ProgressUpserts.Inc()
	p.seq++
	seq := p.seq
	p.owner.sends.Add(1)
	go func() {
		defer p.owner.sends.Done()
		p.sendMu.Lock()
		defer p.sendMu.Unlock()
		if seq <= p.delivered {
			logging.Debug().Str("course_id", record.CourseID).Str("lesson_id", record.LessonID).Msg("stale video progress skipped")
			return
		}
		p.delivered = seq
		if _, err := p.owner.sink.TrackVideo(p.ctx, record); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Str("course_id", record.CourseID).Str("lesson_id", record.LessonID).Msg("video progress lost")
		}
	}()
}

func toOutput(r domain.VideoProgressRecord) progressdto.ProgressOutput {
	return progressdto.ProgressOutput{
		CourseID:    r.CourseID,
		LessonID:    r.LessonID,
		CurrentTime: r.CurrentTime,
		Duration:    r.Duration,
		Percentage:  r.Percentage,
		Completed:   r.Completed,
		Timestamp:   r.Timestamp,
	}
}
