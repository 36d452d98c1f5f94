package in

import (
	"context"

	progressdto "studytrack/internal/modules/progress/dto"
	progressin "studytrack/internal/modules/progress/port/in"
)

type CLIHandler struct {
	usecase progressin.Usecase
}

func NewCLIHandler(usecase progressin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Show(ctx context.Context, courseID, lessonID string) (progressdto.ProgressOutput, error) {
	return h.usecase.LastKnown(ctx, courseID, lessonID)
}

func (h CLIHandler) SaveCourse(ctx context.Context, courseID string, percentage float64, metadata map[string]any) (progressdto.CourseProgressOutput, error) {
	return h.usecase.SaveCourseProgress(ctx, progressdto.CourseProgressInput{CourseID: courseID, Percentage: percentage, Metadata: metadata})
}
