package out

import (
	"context"

	"studytrack/internal/modules/session/domain"
)

type ActiveSessionStore interface {
	SaveActive(ctx context.Context, session domain.StudySession) error
	// LoadActive returns apperrors.ErrNoActiveSession when nothing is persisted.
	LoadActive(ctx context.Context) (domain.StudySession, error)
	ClearActive(ctx context.Context) error
}

// SessionLogger reports a finalized session. Implementations own the
// fallback to the outbox, so an error here means the record is lost.
type SessionLogger interface {
	LogSession(ctx context.Context, log domain.SessionLog) error
}

type SessionJournal interface {
	Record(ctx context.Context, log domain.SessionLog) (string, error)
}
