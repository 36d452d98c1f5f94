package domain

import (
	"sort"
	"time"

	"github.com/goccy/go-json"
)

// DefaultCapacity bounds each queue (or all queues, under PolicyShared).
const DefaultCapacity = 50

// Queue names double as the durable storage keys.
const (
	QueueSessionLogs   = "pendingStudyLogs"
	QueueVideoProgress = "offline_progress"
)

// Queues lists every queue in drain order.
var Queues = []string{QueueSessionLogs, QueueVideoProgress}

type Policy string

const (
	// PolicyPerQueue caps each queue independently.
	PolicyPerQueue Policy = "per_queue"
	// PolicyShared caps the sum of all queues; the globally oldest entry goes first.
	PolicyShared Policy = "shared"
)

type Entry struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Endpoint   string          `json:"endpoint"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// Ref locates an entry across queues.
type Ref struct {
	Queue string
	ID    string
}

// TrimFIFO keeps the newest capacity entries; entries are in enqueue order.
func TrimFIFO(entries []Entry, capacity int) (kept, evicted []Entry) {
	if capacity < 0 || len(entries) <= capacity {
		return entries, nil
	}
	cut := len(entries) - capacity
	return entries[cut:], entries[:cut]
}

// OldestAcross picks the n oldest entries over all queues. Ties keep queue
// order from Queues, then position.
func OldestAcross(queues map[string][]Entry, n int) []Ref {
	if n <= 0 {
		return nil
	}
	type candidate struct {
		ref   Ref
		at    time.Time
		order int
		pos   int
	}
	var all []candidate
	for order, name := range Queues {
		for pos, e := range queues[name] {
			all = append(all, candidate{ref: Ref{Queue: name, ID: e.ID}, at: e.EnqueuedAt, order: order, pos: pos})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].at.Equal(all[j].at) {
			return all[i].at.Before(all[j].at)
		}
		if all[i].order != all[j].order {
			return all[i].order < all[j].order
		}
		return all[i].pos < all[j].pos
	})
	if n > len(all) {
		n = len(all)
	}
	refs := make([]Ref, 0, n)
	for _, c := range all[:n] {
		refs = append(refs, c.ref)
	}
	return refs
}

func Total(queues map[string][]Entry) int {
	total := 0
	for _, entries := range queues {
		total += len(entries)
	}
	return total
}

// Coalesces reports whether a queue keeps only the newest entry per
// endpoint. Progress entries are upserts of current state; session logs are
// all kept.
func Coalesces(queue string) bool {
	return queue == QueueVideoProgress
}

// WithoutEndpoint splits entries into those addressed elsewhere and those
// addressed to endpoint, keeping order.
func WithoutEndpoint(entries []Entry, endpoint string) (kept, dropped []Entry) {
	kept = make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Endpoint == endpoint {
			dropped = append(dropped, e)
			continue
		}
		kept = append(kept, e)
	}
	return kept, dropped
}

// Contains reports whether an entry with id is still queued.
func Contains(entries []Entry, id string) bool {
	for _, e := range entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

func IsKnownQueue(name string) bool {
	for _, q := range Queues {
		if q == name {
			return true
		}
	}
	return false
}
