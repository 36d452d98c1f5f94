package dto

import (
	"time"

	"studytrack/internal/modules/outbox/domain"
)

type EnqueueInput struct {
	Queue    string
	Kind     string
	Endpoint string
	Payload  any
}

type EntryOutput struct {
	ID         string
	Queue      string
	Kind       string
	Endpoint   string
	EnqueuedAt time.Time
	Payload    string
}

type DrainOutput struct {
	Queue     string
	Delivered int
	Remaining int
}

// Queue names accepted by Enqueue, Drain and List.
const (
	QueueSessionLogs   = domain.QueueSessionLogs
	QueueVideoProgress = domain.QueueVideoProgress
)
