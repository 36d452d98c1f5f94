package out

import (
	"context"

	"studytrack/internal/modules/progress/domain"
	progressout "studytrack/internal/modules/progress/port/out"
	apperrors "studytrack/internal/platform/errors"
	"studytrack/internal/platform/kv"
)

type KVProgressCache struct {
	store kv.Store
}

func NewKVProgressCache(store kv.Store) progressout.ProgressCache {
	return &KVProgressCache{store: store}
}

func (c *KVProgressCache) Save(ctx context.Context, record domain.VideoProgressRecord) error {
	return kv.PutJSON(ctx, c.store, domain.CacheKey(record.CourseID, record.LessonID), record)
}

func (c *KVProgressCache) Load(ctx context.Context, courseID, lessonID string) (domain.VideoProgressRecord, error) {
	record := domain.VideoProgressRecord{}
	found, err := kv.GetJSON(ctx, c.store, domain.CacheKey(courseID, lessonID), &record)
	if err != nil {
		return domain.VideoProgressRecord{}, err
	}
	if !found {
		return domain.VideoProgressRecord{}, apperrors.ErrNotFound
	}
	return record, nil
}
