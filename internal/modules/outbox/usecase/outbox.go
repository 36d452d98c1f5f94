package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"

	"studytrack/internal/modules/outbox/domain"
	"studytrack/internal/modules/outbox/dto"
	outboxin "studytrack/internal/modules/outbox/port/in"
	outboxout "studytrack/internal/modules/outbox/port/out"
	"studytrack/internal/modules/outbox/service"
	apperrors "studytrack/internal/platform/errors"
	"studytrack/internal/platform/logging"
)

type Interactor struct {
	svc      *service.OutboxService
	sender   outboxout.Sender
	draining atomic.Bool
	wg       sync.WaitGroup
}

func NewInteractor(svc *service.OutboxService, sender outboxout.Sender) outboxin.Usecase {
	return &Interactor{svc: svc, sender: sender}
}

func (i *Interactor) Enqueue(ctx context.Context, input dto.EnqueueInput) error {
	if input.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", apperrors.ErrInvalidInput)
	}
	var payload []byte
	switch p := input.Payload.(type) {
	case []byte:
		payload = p
	case json.RawMessage:
		payload = p
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode outbox payload: %w", err)
		}
		payload = raw
	}
	entry, err := i.svc.Enqueue(ctx, input.Queue, input.Kind, input.Endpoint, payload)
	if err != nil {
		return err
	}
	logging.Info().Str("queue", input.Queue).Str("entry_id", entry.ID).Str("kind", entry.Kind).Msg("record queued for retry")
	return nil
}

func (i *Interactor) Drain(ctx context.Context, queue string) (dto.DrainOutput, error) {
	if i.sender == nil {
		return dto.DrainOutput{}, fmt.Errorf("outbox sender is not configured")
	}
	delivered, remaining, err := i.svc.Drain(ctx, queue, i.sender.Send)
	if err != nil {
		return dto.DrainOutput{}, err
	}
	if delivered > 0 {
		logging.Info().Str("queue", queue).Int("delivered", delivered).Int("remaining", remaining).Msg("outbox drained")
	}
	return dto.DrainOutput{Queue: queue, Delivered: delivered, Remaining: remaining}, nil
}

func (i *Interactor) Supersede(ctx context.Context, queue, endpoint string) (int, error) {
	return i.svc.Supersede(ctx, queue, endpoint)
}

func (i *Interactor) DrainAll(ctx context.Context) ([]dto.DrainOutput, error) {
	out := make([]dto.DrainOutput, 0, len(domain.Queues))
	for _, queue := range domain.Queues {
		res, err := i.Drain(ctx, queue)
		if err != nil {
			return out, fmt.Errorf("drain %s: %w", queue, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func (i *Interactor) TriggerDrain(ctx context.Context) {
	if !i.draining.CompareAndSwap(false, true) {
		return
	}
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		defer i.draining.Store(false)
		if _, err := i.DrainAll(context.WithoutCancel(ctx)); err != nil {
			logging.Warn().Err(err).Msg("background outbox drain failed")
		}
	}()
}

func (i *Interactor) Wait() {
	i.wg.Wait()
}

func (i *Interactor) List(ctx context.Context, queue string) ([]dto.EntryOutput, error) {
	entries, err := i.svc.List(ctx, queue)
	if err != nil {
		return nil, err
	}
	out := make([]dto.EntryOutput, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.EntryOutput{
			ID:         e.ID,
			Queue:      queue,
			Kind:       e.Kind,
			Endpoint:   e.Endpoint,
			EnqueuedAt: e.EnqueuedAt,
			Payload:    string(e.Payload),
		})
	}
	return out, nil
}
