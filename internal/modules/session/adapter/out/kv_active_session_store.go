package out

import (
	"context"

	"studytrack/internal/modules/session/domain"
	sessionout "studytrack/internal/modules/session/port/out"
	apperrors "studytrack/internal/platform/errors"
	"studytrack/internal/platform/kv"
)

type KVActiveSessionStore struct {
	store kv.Store
}

func NewKVActiveSessionStore(store kv.Store) sessionout.ActiveSessionStore {
	return &KVActiveSessionStore{store: store}
}

func (s *KVActiveSessionStore) SaveActive(ctx context.Context, session domain.StudySession) error {
	return kv.PutJSON(ctx, s.store, domain.ActiveSessionKey, session)
}

func (s *KVActiveSessionStore) LoadActive(ctx context.Context) (domain.StudySession, error) {
	session := domain.StudySession{}
	found, err := kv.GetJSON(ctx, s.store, domain.ActiveSessionKey, &session)
	if err != nil {
		return domain.StudySession{}, err
	}
	if !found || session.SessionID == "" {
		return domain.StudySession{}, apperrors.ErrNoActiveSession
	}
	return session, nil
}

func (s *KVActiveSessionStore) ClearActive(ctx context.Context) error {
	return s.store.Delete(ctx, domain.ActiveSessionKey)
}
