package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	queuestore "studytrack/internal/modules/outbox/adapter/out"
	"studytrack/internal/modules/outbox/domain"
	"studytrack/internal/modules/outbox/dto"
	"studytrack/internal/modules/outbox/service"
	"studytrack/internal/modules/outbox/usecase"
	"studytrack/internal/platform/clock"
	"studytrack/internal/platform/id"
	"studytrack/internal/platform/kv"
)

type fakeSender struct {
	mu      sync.Mutex
	fail    bool
	entries []domain.Entry
}

func (f *fakeSender) Send(_ context.Context, e domain.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("offline")
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeSender) sent() []domain.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Entry(nil), f.entries...)
}

func newInteractor(t *testing.T, sender *fakeSender) (*usecase.Interactor, kv.Store) {
	t.Helper()
	store := kv.NewMemoryStore()
	svc := service.NewOutboxService(
		clock.NewManual(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		id.UUID{},
		queuestore.NewKVQueueStore(store),
		domain.DefaultCapacity,
		domain.PolicyPerQueue,
	)
	return usecase.NewInteractor(svc, sender).(*usecase.Interactor), store
}

func TestEnqueueEncodesStructPayloads(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uc, _ := newInteractor(t, &fakeSender{})
	payload := struct {
		Duration int64 `json:"duration"`
	}{Duration: 120}
	if err := uc.Enqueue(ctx, dto.EnqueueInput{Queue: domain.QueueSessionLogs, Kind: "session_log", Endpoint: "/courses/c1/lessons/l1/study-sessions", Payload: payload}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := uc.Enqueue(ctx, dto.EnqueueInput{Queue: domain.QueueSessionLogs, Kind: "session_log", Endpoint: "/x", Payload: []byte(`{"raw":true}`)}); err != nil {
		t.Fatalf("enqueue raw: %v", err)
	}
	list, err := uc.List(ctx, domain.QueueSessionLogs)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Payload != `{"duration":120}` || list[1].Payload != `{"raw":true}` {
		t.Fatalf("unexpected payloads: %+v", list)
	}
	if list[0].ID == "" || list[0].Queue != domain.QueueSessionLogs {
		t.Fatalf("entry output missing identity: %+v", list[0])
	}
}

func TestEnqueueRequiresEndpoint(t *testing.T) {
	t.Parallel()
	uc, _ := newInteractor(t, &fakeSender{})
	if err := uc.Enqueue(context.Background(), dto.EnqueueInput{Queue: domain.QueueSessionLogs, Payload: []byte(`{}`)}); err == nil {
		t.Fatalf("expected endpoint validation error")
	}
}

func TestDrainAllDeliversEveryQueue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sender := &fakeSender{}
	uc, _ := newInteractor(t, sender)
	for _, q := range domain.Queues {
		if err := uc.Enqueue(ctx, dto.EnqueueInput{Queue: q, Kind: "k", Endpoint: "/" + q, Payload: []byte(`{}`)}); err != nil {
			t.Fatalf("enqueue %s: %v", q, err)
		}
	}
	results, err := uc.DrainAll(ctx)
	if err != nil {
		t.Fatalf("drain all: %v", err)
	}
	if len(results) != len(domain.Queues) {
		t.Fatalf("expected a result per queue, got %+v", results)
	}
	for _, r := range results {
		if r.Delivered != 1 || r.Remaining != 0 {
			t.Fatalf("unexpected drain result %+v", r)
		}
	}
	if got := sender.sent(); len(got) != 2 || !strings.HasPrefix(got[0].Endpoint, "/") {
		t.Fatalf("unexpected deliveries %+v", got)
	}
}

func TestDrainFailureKeepsQueuePersisted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sender := &fakeSender{fail: true}
	uc, store := newInteractor(t, sender)
	if err := uc.Enqueue(ctx, dto.EnqueueInput{Queue: domain.QueueVideoProgress, Kind: "video_progress", Endpoint: "/v", Payload: []byte(`{}`)}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	res, err := uc.Drain(ctx, domain.QueueVideoProgress)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if res.Delivered != 0 || res.Remaining != 1 {
		t.Fatalf("failed entry must remain, got %+v", res)
	}
	if _, err := store.Get(ctx, domain.QueueVideoProgress); err != nil {
		t.Fatalf("queue record should stay in storage: %v", err)
	}
}

func TestTriggerDrainRunsInBackground(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sender := &fakeSender{}
	uc, store := newInteractor(t, sender)
	if err := uc.Enqueue(ctx, dto.EnqueueInput{Queue: domain.QueueSessionLogs, Kind: "session_log", Endpoint: "/s", Payload: []byte(`{}`)}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	uc.TriggerDrain(ctx)
	uc.TriggerDrain(ctx)
	uc.Wait()
	if got := sender.sent(); len(got) != 1 {
		t.Fatalf("entry must be delivered exactly once, got %d", len(got))
	}
	if _, err := store.Get(ctx, domain.QueueSessionLogs); err == nil {
		t.Fatalf("empty queue record should be deleted")
	}
}
