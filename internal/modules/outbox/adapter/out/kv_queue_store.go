package out

import (
	"context"

	"studytrack/internal/modules/outbox/domain"
	outboxout "studytrack/internal/modules/outbox/port/out"
	"studytrack/internal/platform/kv"
)

// KVQueueStore keeps each queue as a JSON array under the queue's name.
type KVQueueStore struct {
	store kv.Store
}

func NewKVQueueStore(store kv.Store) outboxout.QueueStore {
	return &KVQueueStore{store: store}
}

func (s *KVQueueStore) Load(ctx context.Context, queue string) ([]domain.Entry, error) {
	entries := []domain.Entry{}
	if _, err := kv.GetJSON(ctx, s.store, queue, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *KVQueueStore) Save(ctx context.Context, queue string, entries []domain.Entry) error {
	if len(entries) == 0 {
		return s.store.Delete(ctx, queue)
	}
	return kv.PutJSON(ctx, s.store, queue, entries)
}
