package out_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	outboxdto "studytrack/internal/modules/outbox/dto"
	sessionout "studytrack/internal/modules/session/adapter/out"
	"studytrack/internal/modules/session/domain"
	"studytrack/internal/platform/clock"
	apperrors "studytrack/internal/platform/errors"
	"studytrack/internal/platform/kv"
	"studytrack/internal/platform/notify"
	"studytrack/internal/platform/syncclient"
)

type fakeOutbox struct {
	mu       sync.Mutex
	enqueued []outboxdto.EnqueueInput
	triggers int
}

func (f *fakeOutbox) Enqueue(_ context.Context, in outboxdto.EnqueueInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, in)
	return nil
}
func (f *fakeOutbox) Drain(context.Context, string) (outboxdto.DrainOutput, error) {
	return outboxdto.DrainOutput{}, nil
}
func (f *fakeOutbox) DrainAll(context.Context) ([]outboxdto.DrainOutput, error) { return nil, nil }
func (f *fakeOutbox) List(context.Context, string) ([]outboxdto.EntryOutput, error) {
	return nil, nil
}
func (f *fakeOutbox) Supersede(context.Context, string, string) (int, error) { return 0, nil }
func (f *fakeOutbox) TriggerDrain(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers++
}
func (f *fakeOutbox) Wait() {}

var sample = domain.SessionLog{
	SessionID: "sess-1",
	CourseID:  "go-101",
	LessonID:  "channels",
	StartTime: time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC),
	EndTime:   time.Date(2026, 3, 2, 18, 25, 0, 0, time.UTC),
	Duration:  1500.4,
	Progress:  62,
}

func TestRemoteLoggerSuccessTriggersDrain(t *testing.T) {
	t.Parallel()
	var path atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)
	outbox := &fakeOutbox{}
	logger := sessionout.NewRemoteSessionLogger(syncclient.New(syncclient.Config{BaseURL: server.URL}), outbox, nil, clock.NewManual(sample.EndTime))

	if err := logger.LogSession(context.Background(), sample); err != nil {
		t.Fatalf("log session: %v", err)
	}
	if path.Load() != "/courses/go-101/lessons/channels/study-sessions" {
		t.Fatalf("unexpected path %v", path.Load())
	}
	if outbox.triggers != 1 || len(outbox.enqueued) != 0 {
		t.Fatalf("success must trigger a drain and enqueue nothing, got %+v", outbox)
	}
}

func TestRemoteLoggerFailureQueuesAndNotifies(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)
	outbox := &fakeOutbox{}
	var events []notify.Event
	sink := notify.SinkFunc(func(e notify.Event) { events = append(events, e) })
	logger := sessionout.NewRemoteSessionLogger(syncclient.New(syncclient.Config{BaseURL: server.URL}), outbox, sink, clock.NewManual(sample.EndTime))

	if err := logger.LogSession(context.Background(), sample); err != nil {
		t.Fatalf("log session: %v", err)
	}
	if len(outbox.enqueued) != 1 {
		t.Fatalf("failed log must be queued, got %d", len(outbox.enqueued))
	}
	entry := outbox.enqueued[0]
	if entry.Queue != outboxdto.QueueSessionLogs || entry.Kind != syncclient.EndpointSessionLog {
		t.Fatalf("unexpected queue entry %+v", entry)
	}
	payload, ok := entry.Payload.(syncclient.SessionLogPayload)
	if !ok || payload.Duration != 1500 || payload.Progress != 62 {
		t.Fatalf("unexpected payload %#v", entry.Payload)
	}
	if len(events) != 1 || events[0].Type != notify.EventSyncFailure || events[0].Reason != "status 502" {
		t.Fatalf("expected one sync failure event, got %+v", events)
	}
}

func TestKVActiveSessionStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := sessionout.NewKVActiveSessionStore(kv.NewFileStore(t.TempDir()))
	if _, err := store.LoadActive(ctx); !errors.Is(err, apperrors.ErrNoActiveSession) {
		t.Fatalf("expected no active session, got %v", err)
	}
	want := domain.StudySession{SessionID: "s1", CourseID: "c", LessonID: "l", StartTime: sample.StartTime, LastUpdated: sample.EndTime, Duration: 42.5, State: domain.StatePaused}
	if err := store.SaveActive(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.LoadActive(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.SessionID != "s1" || got.Duration != 42.5 || got.State != domain.StatePaused || !got.LastUpdated.Equal(want.LastUpdated) {
		t.Fatalf("unexpected restored session %+v", got)
	}
	if err := store.ClearActive(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.LoadActive(ctx); !errors.Is(err, apperrors.ErrNoActiveSession) {
		t.Fatalf("expected cleared session, got %v", err)
	}
}

func TestMarkdownJournalWritesNote(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path, err := sessionout.NewMarkdownJournal(dir).Record(context.Background(), sample)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !strings.Contains(path, "sessions/2026/03/02/180000-go-101-channels-sess-1.md") {
		t.Fatalf("unexpected journal path %s", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read note: %v", err)
	}
	note := string(raw)
	if !strings.HasPrefix(note, "---\n") || !strings.Contains(note, "duration_seconds: 1500") || !strings.Contains(note, "course_id: go-101") {
		t.Fatalf("journal note missing frontmatter: %s", note)
	}
}
