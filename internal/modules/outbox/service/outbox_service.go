package service

import (
	"context"
	"fmt"
	"sync"

	"studytrack/internal/modules/outbox/domain"
	outboxout "studytrack/internal/modules/outbox/port/out"
	"studytrack/internal/platform/clock"
	apperrors "studytrack/internal/platform/errors"
	"studytrack/internal/platform/id"
	"studytrack/internal/platform/logging"
	"studytrack/internal/platform/metrics"
)

type SendFunc func(ctx context.Context, entry domain.Entry) error

// OutboxService owns every queue record. mu serializes load-modify-save
// cycles so a drain never overwrites entries enqueued while it was sending.
type OutboxService struct {
	clock    clock.Clock
	idGen    id.Generator
	store    outboxout.QueueStore
	capacity int
	policy   domain.Policy
	mu       sync.Mutex
}

func NewOutboxService(clock clock.Clock, idGen id.Generator, store outboxout.QueueStore, capacity int, policy domain.Policy) *OutboxService {
	if capacity <= 0 {
		capacity = domain.DefaultCapacity
	}
	if policy == "" {
		policy = domain.PolicyPerQueue
	}
	return &OutboxService{clock: clock, idGen: idGen, store: store, capacity: capacity, policy: policy}
}

func (s *OutboxService) Enqueue(ctx context.Context, queue, kind, endpoint string, payload []byte) (domain.Entry, error) {
	if !domain.IsKnownQueue(queue) {
		return domain.Entry{}, fmt.Errorf("%w: unknown queue %q", apperrors.ErrInvalidInput, queue)
	}
	entry := domain.Entry{
		ID:         s.idGen.New(),
		Kind:       kind,
		Endpoint:   endpoint,
		Payload:    append([]byte(nil), payload...),
		EnqueuedAt: s.clock.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.store.Load(ctx, queue)
	if err != nil {
		return domain.Entry{}, err
	}
	if domain.Coalesces(queue) {
		var replaced []domain.Entry
		entries, replaced = domain.WithoutEndpoint(entries, endpoint)
		s.recordSuperseded(queue, replaced)
	}
	entries = append(entries, entry)

	if s.policy == domain.PolicyShared {
		if err := s.saveShared(ctx, queue, entries); err != nil {
			return domain.Entry{}, err
		}
		return entry, nil
	}

	kept, evicted := domain.TrimFIFO(entries, s.capacity)
	if err := s.store.Save(ctx, queue, kept); err != nil {
		return domain.Entry{}, err
	}
	s.recordEvictions(queue, evicted)
	metrics.OutboxDepth.WithLabelValues(queue).Set(float64(len(kept)))
	return entry, nil
}

func (s *OutboxService) saveShared(ctx context.Context, queue string, appended []domain.Entry) error {
	all := map[string][]domain.Entry{queue: appended}
	for _, name := range domain.Queues {
		if name == queue {
			continue
		}
		entries, err := s.store.Load(ctx, name)
		if err != nil {
			return err
		}
		all[name] = entries
	}

	dirty := map[string]bool{queue: true}
	if over := domain.Total(all) - s.capacity; over > 0 {
		drop := map[string]map[string]bool{}
		for _, ref := range domain.OldestAcross(all, over) {
			if drop[ref.Queue] == nil {
				drop[ref.Queue] = map[string]bool{}
			}
			drop[ref.Queue][ref.ID] = true
		}
		for name, ids := range drop {
			var kept, evicted []domain.Entry
			for _, e := range all[name] {
				if ids[e.ID] {
					evicted = append(evicted, e)
					continue
				}
				kept = append(kept, e)
			}
			all[name] = kept
			dirty[name] = true
			s.recordEvictions(name, evicted)
		}
	}
	for _, name := range domain.Queues {
		if !dirty[name] {
			continue
		}
		if err := s.store.Save(ctx, name, all[name]); err != nil {
			return err
		}
		metrics.OutboxDepth.WithLabelValues(name).Set(float64(len(all[name])))
	}
	return nil
}

func (s *OutboxService) recordEvictions(queue string, evicted []domain.Entry) {
	for _, e := range evicted {
		metrics.OutboxEvictions.WithLabelValues(queue).Inc()
		logging.Warn().Str("queue", queue).Str("entry_id", e.ID).Str("kind", e.Kind).Time("enqueued_at", e.EnqueuedAt).Msg("outbox full, oldest entry evicted")
	}
}

func (s *OutboxService) recordSuperseded(queue string, dropped []domain.Entry) {
	for _, e := range dropped {
		logging.Debug().Str("queue", queue).Str("entry_id", e.ID).Str("endpoint", e.Endpoint).Msg("outbox entry superseded by a newer write")
	}
}

// Supersede drops every entry of a coalescing queue addressed to endpoint.
// Callers use it once a newer write to that endpoint has been accepted.
func (s *OutboxService) Supersede(ctx context.Context, queue, endpoint string) (int, error) {
	if !domain.IsKnownQueue(queue) {
		return 0, fmt.Errorf("%w: unknown queue %q", apperrors.ErrInvalidInput, queue)
	}
	if !domain.Coalesces(queue) {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.store.Load(ctx, queue)
	if err != nil {
		return 0, err
	}
	kept, dropped := domain.WithoutEndpoint(entries, endpoint)
	if len(dropped) == 0 {
		return 0, nil
	}
	if err := s.store.Save(ctx, queue, kept); err != nil {
		return 0, err
	}
	s.recordSuperseded(queue, dropped)
	metrics.OutboxDepth.WithLabelValues(queue).Set(float64(len(kept)))
	return len(dropped), nil
}

// Drain tries send on a snapshot of queue in FIFO order. Delivered entries are
// removed; failed ones stay for the next drain. There is no backoff.
func (s *OutboxService) Drain(ctx context.Context, queue string, send SendFunc) (delivered, remaining int, err error) {
	if !domain.IsKnownQueue(queue) {
		return 0, 0, fmt.Errorf("%w: unknown queue %q", apperrors.ErrInvalidInput, queue)
	}
	s.mu.Lock()
	snapshot, err := s.store.Load(ctx, queue)
	s.mu.Unlock()
	if err != nil {
		return 0, 0, err
	}
	if len(snapshot) == 0 {
		return 0, 0, nil
	}

	done := map[string]bool{}
	for _, entry := range snapshot {
		if ctx.Err() != nil {
			break
		}
		if !s.stillQueued(ctx, queue, entry.ID) {
			continue
		}
		if sendErr := send(ctx, entry); sendErr != nil {
			logging.Debug().Err(sendErr).Str("queue", queue).Str("entry_id", entry.ID).Msg("outbox redelivery failed")
			continue
		}
		done[entry.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.store.Load(ctx, queue)
	if err != nil {
		return 0, 0, err
	}
	kept := make([]domain.Entry, 0, len(current))
	for _, e := range current {
		if !done[e.ID] {
			kept = append(kept, e)
		}
	}
	if len(done) > 0 {
		if err := s.store.Save(ctx, queue, kept); err != nil {
			return 0, 0, err
		}
	}
	metrics.OutboxDelivered.WithLabelValues(queue).Add(float64(len(done)))
	metrics.OutboxDepth.WithLabelValues(queue).Set(float64(len(kept)))
	return len(done), len(kept), nil
}

// stillQueued skips snapshot entries that were superseded mid-drain.
func (s *OutboxService) stillQueued(ctx context.Context, queue, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.store.Load(ctx, queue)
	if err != nil {
		return true
	}
	return domain.Contains(current, id)
}

func (s *OutboxService) List(ctx context.Context, queue string) ([]domain.Entry, error) {
	if !domain.IsKnownQueue(queue) {
		return nil, fmt.Errorf("%w: unknown queue %q", apperrors.ErrInvalidInput, queue)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load(ctx, queue)
}
