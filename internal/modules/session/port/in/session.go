package in

import (
	"context"

	"studytrack/internal/modules/session/dto"
)

type Usecase interface {
	Start(ctx context.Context, input dto.StartInput) (dto.SessionOutput, error)
	Update(ctx context.Context) (dto.SessionOutput, error)
	Pause(ctx context.Context) (dto.SessionOutput, error)
	Resume(ctx context.Context) (dto.SessionOutput, error)
	End(ctx context.Context) (dto.EndOutput, error)
	SetProgress(ctx context.Context, percentage float64) error
	GetActive(ctx context.Context) (dto.SessionOutput, error)
	// Peek reads the persisted session without restoring it.
	Peek(ctx context.Context) (dto.SessionOutput, error)
	// Restore picks up a persisted session once at startup.
	Restore(ctx context.Context) (dto.RestoreOutput, error)
	// Wait blocks until in-flight session logs have settled.
	Wait()
	// Close stops the heartbeat and waits. The open session stays persisted.
	Close()
}
