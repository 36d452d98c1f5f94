package in

import (
	"context"

	"studytrack/internal/modules/outbox/dto"
)

type Usecase interface {
	Enqueue(ctx context.Context, input dto.EnqueueInput) error
	Drain(ctx context.Context, queue string) (dto.DrainOutput, error)
	DrainAll(ctx context.Context) ([]dto.DrainOutput, error)
	List(ctx context.Context, queue string) ([]dto.EntryOutput, error)
	// Supersede discards queued progress entries for endpoint after a newer
	// write to it succeeded. Queues that keep every entry are left alone.
	Supersede(ctx context.Context, queue, endpoint string) (int, error)
	// TriggerDrain starts a background DrainAll unless one is already running.
	TriggerDrain(ctx context.Context)
	// Wait blocks until background drains have finished.
	Wait()
}
