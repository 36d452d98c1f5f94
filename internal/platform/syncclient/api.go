package syncclient

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Endpoint labels for the three progress-service writes.
const (
	EndpointCourseProgress = "course_progress"
	EndpointVideoProgress  = "video_progress"
	EndpointSessionLog     = "session_log"
)

type CourseProgressPayload struct {
	Percentage float64        `json:"percentage"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type VideoProgressPayload struct {
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	Progress    float64 `json:"progress"`
	Completed   bool    `json:"completed"`
}

type SessionLogPayload struct {
	Duration  int64     `json:"duration"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Progress  float64   `json:"progress"`
}

func CourseProgressPath(courseID string) string {
	return fmt.Sprintf("/courses/%s/progress", url.PathEscape(courseID))
}

func VideoProgressPath(courseID, lessonID string) string {
	return fmt.Sprintf("/courses/%s/lessons/%s/video-progress", url.PathEscape(courseID), url.PathEscape(lessonID))
}

func SessionLogPath(courseID, lessonID string) string {
	return fmt.Sprintf("/courses/%s/lessons/%s/study-sessions", url.PathEscape(courseID), url.PathEscape(lessonID))
}

func (c *Client) SaveCourseProgress(ctx context.Context, courseID string, payload CourseProgressPayload) Result {
	return c.SendJSON(ctx, EndpointCourseProgress, CourseProgressPath(courseID), payload)
}

func (c *Client) TrackVideo(ctx context.Context, courseID, lessonID string, payload VideoProgressPayload) Result {
	return c.SendJSON(ctx, EndpointVideoProgress, VideoProgressPath(courseID, lessonID), payload)
}

func (c *Client) LogSession(ctx context.Context, courseID, lessonID string, payload SessionLogPayload) Result {
	return c.SendJSON(ctx, EndpointSessionLog, SessionLogPath(courseID, lessonID), payload)
}
