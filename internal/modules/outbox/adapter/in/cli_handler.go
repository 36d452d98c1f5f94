package in

import (
	"context"

	"studytrack/internal/modules/outbox/dto"
	outboxin "studytrack/internal/modules/outbox/port/in"
)

type CLIHandler struct {
	usecase outboxin.Usecase
}

func NewCLIHandler(usecase outboxin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) List(ctx context.Context, queue string) ([]dto.EntryOutput, error) {
	return h.usecase.List(ctx, queue)
}

func (h CLIHandler) Drain(ctx context.Context, queue string) ([]dto.DrainOutput, error) {
	if queue == "" {
		return h.usecase.DrainAll(ctx)
	}
	out, err := h.usecase.Drain(ctx, queue)
	if err != nil {
		return nil, err
	}
	return []dto.DrainOutput{out}, nil
}
