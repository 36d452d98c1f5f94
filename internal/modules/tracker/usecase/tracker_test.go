package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	progressadapter "studytrack/internal/modules/progress/adapter/out"
	progressdomain "studytrack/internal/modules/progress/domain"
	progressin "studytrack/internal/modules/progress/port/in"
	progressout "studytrack/internal/modules/progress/port/out"
	progressservice "studytrack/internal/modules/progress/service"
	progressusecase "studytrack/internal/modules/progress/usecase"
	sessionadapter "studytrack/internal/modules/session/adapter/out"
	sessiondomain "studytrack/internal/modules/session/domain"
	sessionin "studytrack/internal/modules/session/port/in"
	sessionservice "studytrack/internal/modules/session/service"
	sessionusecase "studytrack/internal/modules/session/usecase"
	trackerdto "studytrack/internal/modules/tracker/dto"
	trackerin "studytrack/internal/modules/tracker/port/in"
	"studytrack/internal/modules/tracker/usecase"
	"studytrack/internal/platform/clock"
	"studytrack/internal/platform/id"
	"studytrack/internal/platform/kv"
)

type recorder struct {
	mu       sync.Mutex
	logs     []sessiondomain.SessionLog
	videos   []progressdomain.VideoProgressRecord
	complete int
}

func (r *recorder) LogSession(_ context.Context, l sessiondomain.SessionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, l)
	return nil
}

func (r *recorder) TrackVideo(_ context.Context, v progressdomain.VideoProgressRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videos = append(r.videos, v)
	return true, nil
}

func (r *recorder) SaveCourse(context.Context, progressdomain.CourseProgress) (bool, error) {
	return true, nil
}

func (r *recorder) LessonCompleted(context.Context, string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete++
}

type rig struct {
	clk      *clock.Manual
	rec      *recorder
	store    kv.Store
	sessions sessionin.Usecase
	progress progressin.Usecase
	tracker  trackerin.Usecase
}

func newRig(t *testing.T, store kv.Store, clk *clock.Manual) rig {
	t.Helper()
	return newRigWithSink(t, store, clk, &recorder{}, nil)
}

// newRigWithSink sends video progress to sink when it is set, and to the
// recorder otherwise.
func newRigWithSink(t *testing.T, store kv.Store, clk *clock.Manual, rec *recorder, sink progressout.ProgressSink) rig {
	t.Helper()
	if sink == nil {
		sink = rec
	}
	sessions := sessionusecase.NewManager(
		sessionservice.NewSessionService(clk, id.UUID{}),
		clk,
		sessionadapter.NewKVActiveSessionStore(store),
		rec,
		nil,
		sessionusecase.DefaultOptions(),
	)
	progress := progressusecase.NewInteractor(
		progressservice.NewProgressService(clk, progressdomain.DefaultThresholds()),
		sink,
		progressadapter.NewKVProgressCache(store),
		rec,
	)
	return rig{clk: clk, rec: rec, store: store, sessions: sessions, progress: progress, tracker: usecase.NewInteractor(sessions, progress)}
}

func (r rig) send(t *testing.T, in trackerdto.EventInput) trackerdto.EventOutput {
	t.Helper()
	out, err := r.tracker.Handle(context.Background(), in)
	if err != nil {
		t.Fatalf("handle %s: %v", in.Event, err)
	}
	return out
}

func TestLessonLifecycleDrivesSessionAndProgress(t *testing.T) {
	t.Parallel()
	r := newRig(t, kv.NewMemoryStore(), clock.NewManual(time.Date(2026, 3, 4, 19, 0, 0, 0, time.UTC)))
	opened := r.send(t, trackerdto.EventInput{Event: "lesson_opened", CourseID: "go-101", LessonID: "channels"})
	if opened.SessionID == "" {
		t.Fatalf("opening a lesson must start a session")
	}
	for i := 1; i <= 120; i++ {
		r.clk.Advance(500 * time.Millisecond)
		r.send(t, trackerdto.EventInput{Event: "playback_time_update", CurrentTime: float64(i) / 2, Duration: 62})
	}
	r.send(t, trackerdto.EventInput{Event: "visibility_pause"})
	r.clk.Advance(5 * time.Minute)
	r.send(t, trackerdto.EventInput{Event: "visibility_resume"})
	r.clk.Advance(10 * time.Second)
	closed := r.send(t, trackerdto.EventInput{Event: "lesson_closed", CourseID: "go-101", LessonID: "channels"})
	r.sessions.Wait()
	r.progress.Wait()

	if closed.SessionID != opened.SessionID {
		t.Fatalf("close must end the opened session")
	}
	r.rec.mu.Lock()
	defer r.rec.mu.Unlock()
	if len(r.rec.logs) != 1 || r.rec.logs[0].Duration != 70 {
		t.Fatalf("expected one 70s session log, got %+v", r.rec.logs)
	}
	if r.rec.logs[0].Progress < 95 {
		t.Fatalf("session progress should follow playback, got %v", r.rec.logs[0].Progress)
	}
	if r.rec.complete != 1 || len(r.rec.videos) == 0 || !r.rec.videos[len(r.rec.videos)-1].Completed {
		t.Fatalf("watching past 95%% must complete the lesson once, got complete=%d videos=%d", r.rec.complete, len(r.rec.videos))
	}
}

func TestVisibilityEventsOutOfOrderAreIgnored(t *testing.T) {
	t.Parallel()
	r := newRig(t, kv.NewMemoryStore(), clock.NewManual(time.Date(2026, 3, 4, 19, 0, 0, 0, time.UTC)))
	if out := r.send(t, trackerdto.EventInput{Event: "visibility_resume"}); !out.Ignored {
		t.Fatalf("resume without a session must be ignored")
	}
	r.send(t, trackerdto.EventInput{Event: "lesson_opened", CourseID: "c1", LessonID: "l1"})
	if out := r.send(t, trackerdto.EventInput{Event: "visibility_resume"}); !out.Ignored {
		t.Fatalf("resume while active must be ignored")
	}
	if out := r.send(t, trackerdto.EventInput{Event: "playback_time_update", CourseID: "c1", LessonID: "other", CurrentTime: 10, Duration: 100}); !out.Ignored {
		t.Fatalf("samples for another lesson must be ignored")
	}
	if _, err := r.tracker.Handle(context.Background(), trackerdto.EventInput{Event: "rewind"}); err == nil {
		t.Fatalf("unknown events must be rejected")
	}
}

func TestReopenAfterRestartAdoptsRestoredSession(t *testing.T) {
	t.Parallel()
	store := kv.NewMemoryStore()
	clk := clock.NewManual(time.Date(2026, 3, 4, 19, 0, 0, 0, time.UTC))
	first := newRig(t, store, clk)
	opened := first.send(t, trackerdto.EventInput{Event: "lesson_opened", CourseID: "c1", LessonID: "l1"})
	clk.Advance(2 * time.Minute)
	first.tracker.Detach()
	first.sessions.Close()

	clk.Set(clk.Now().Add(3 * time.Minute))
	second := newRig(t, store, clk)
	if _, err := second.sessions.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	reopened := second.send(t, trackerdto.EventInput{Event: "lesson_opened", CourseID: "c1", LessonID: "l1"})
	if reopened.SessionID != opened.SessionID {
		t.Fatalf("reopening the restored lesson must keep its session, got %s want %s", reopened.SessionID, opened.SessionID)
	}
	clk.Advance(time.Minute)
	if err := second.tracker.Finish(context.Background()); err != nil {
		t.Fatalf("finish: %v", err)
	}
	second.sessions.Wait()
	if len(second.rec.logs) != 1 || second.rec.logs[0].Duration != 180 {
		t.Fatalf("expected restored duration plus one minute, got %+v", second.rec.logs)
	}
}

// stalledSink never answers a video write until release is closed.
type stalledSink struct {
	recorder
	release chan struct{}
}

func (s *stalledSink) TrackVideo(ctx context.Context, v progressdomain.VideoProgressRecord) (bool, error) {
	<-s.release
	return s.recorder.TrackVideo(ctx, v)
}

func TestLessonTransitionsDoNotWaitForUpserts(t *testing.T) {
	t.Parallel()
	clk := clock.NewManual(time.Date(2026, 3, 4, 19, 0, 0, 0, time.UTC))
	rec := &recorder{}
	sink := &stalledSink{release: make(chan struct{})}
	r := newRigWithSink(t, kv.NewMemoryStore(), clk, rec, sink)
	defer func() {
		close(sink.release)
		r.progress.Wait()
		r.sessions.Close()
	}()

	handled := func(in trackerdto.EventInput) {
		t.Helper()
		done := make(chan error, 1)
		go func() {
			_, err := r.tracker.Handle(context.Background(), in)
			done <- err
		}()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("handle %s: %v", in.Event, err)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s blocked behind a stalled progress write", in.Event)
		}
	}

	handled(trackerdto.EventInput{Event: "lesson_opened", CourseID: "c1", LessonID: "l1"})
	clk.Advance(45 * time.Second)
	handled(trackerdto.EventInput{Event: "playback_time_update", CurrentTime: 40, Duration: 100})
	handled(trackerdto.EventInput{Event: "lesson_opened", CourseID: "c1", LessonID: "l2"})
	handled(trackerdto.EventInput{Event: "playback_time_update", CurrentTime: 40, Duration: 100})
	clk.Advance(45 * time.Second)
	handled(trackerdto.EventInput{Event: "lesson_closed", CourseID: "c1", LessonID: "l2"})
	r.sessions.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.logs) != 2 || rec.logs[0].Duration != 45 || rec.logs[1].Duration != 45 {
		t.Fatalf("both sessions should be logged with their own durations, got %+v", rec.logs)
	}
}
