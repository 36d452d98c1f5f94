package in

import (
	"context"

	sessiondto "studytrack/internal/modules/session/dto"
	sessionin "studytrack/internal/modules/session/port/in"
)

type CLIHandler struct {
	usecase sessionin.Usecase
}

func NewCLIHandler(usecase sessionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Status(ctx context.Context) (sessiondto.SessionOutput, error) {
	return h.usecase.Peek(ctx)
}

// End finalizes whatever session the last run left behind. A stale one is
// finalized by the restore itself.
func (h CLIHandler) End(ctx context.Context) (sessiondto.RestoreOutput, sessiondto.EndOutput, error) {
	restored, err := h.usecase.Restore(ctx)
	if err != nil {
		return restored, sessiondto.EndOutput{}, err
	}
	if restored.Finalized {
		h.usecase.Wait()
		return restored, sessiondto.EndOutput{
			SessionID: restored.Session.SessionID,
			CourseID:  restored.Session.CourseID,
			LessonID:  restored.Session.LessonID,
			Duration:  restored.Session.Duration,
			Logged:    restored.Logged,
		}, nil
	}
	end, err := h.usecase.End(ctx)
	h.usecase.Wait()
	return restored, end, err
}
