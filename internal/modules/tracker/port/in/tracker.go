package in

import (
	"context"

	"studytrack/internal/modules/tracker/dto"
)

type Usecase interface {
	Handle(ctx context.Context, input dto.EventInput) (dto.EventOutput, error)
	// Finish closes the open lesson as if lesson_closed arrived.
	Finish(ctx context.Context) error
	// Detach stops the player but leaves the session persisted for restore.
	Detach()
}
