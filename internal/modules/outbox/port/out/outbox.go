package out

import (
	"context"

	"studytrack/internal/modules/outbox/domain"
)

// QueueStore persists a whole queue as one record.
type QueueStore interface {
	Load(ctx context.Context, queue string) ([]domain.Entry, error)
	Save(ctx context.Context, queue string, entries []domain.Entry) error
}

// Sender redelivers a queued entry. A nil error removes it from the queue.
type Sender interface {
	Send(ctx context.Context, entry domain.Entry) error
}
