package domain_test

import (
	"testing"
	"time"

	"studytrack/internal/modules/outbox/domain"
)

func TestTrimFIFOEvictsOldest(t *testing.T) {
	t.Parallel()
	entries := []domain.Entry{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	kept, evicted := domain.TrimFIFO(entries, 2)
	if len(kept) != 2 || kept[0].ID != "2" || kept[1].ID != "3" {
		t.Fatalf("unexpected kept: %+v", kept)
	}
	if len(evicted) != 1 || evicted[0].ID != "1" {
		t.Fatalf("unexpected evicted: %+v", evicted)
	}
	kept, evicted = domain.TrimFIFO(entries, 5)
	if len(kept) != 3 || evicted != nil {
		t.Fatalf("under capacity must be untouched")
	}
}

func TestOldestAcrossOrdersByTimeThenQueue(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2026, 2, 25, 10, 0, 0, 0, time.UTC)
	queues := map[string][]domain.Entry{
		domain.QueueSessionLogs:   {{ID: "s1", EnqueuedAt: t0.Add(time.Second)}, {ID: "s2", EnqueuedAt: t0.Add(3 * time.Second)}},
		domain.QueueVideoProgress: {{ID: "v1", EnqueuedAt: t0}, {ID: "v2", EnqueuedAt: t0.Add(time.Second)}},
	}
	refs := domain.OldestAcross(queues, 3)
	want := []string{"v1", "s1", "v2"}
	if len(refs) != len(want) {
		t.Fatalf("expected %d refs, got %d", len(want), len(refs))
	}
	for i, id := range want {
		if refs[i].ID != id {
			t.Fatalf("ref %d = %s, want %s (%+v)", i, refs[i].ID, id, refs)
		}
	}
	if domain.Total(queues) != 4 {
		t.Fatalf("total mismatch")
	}
}
