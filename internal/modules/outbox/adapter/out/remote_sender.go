package out

import (
	"context"
	"errors"
	"net/http"

	"studytrack/internal/modules/outbox/domain"
	outboxout "studytrack/internal/modules/outbox/port/out"
	"studytrack/internal/platform/syncclient"
)

type RemoteSender struct {
	client *syncclient.Client
}

func NewRemoteSender(client *syncclient.Client) outboxout.Sender {
	return &RemoteSender{client: client}
}

// Send replays the stored payload verbatim against its recorded endpoint.
func (s *RemoteSender) Send(ctx context.Context, entry domain.Entry) error {
	result := s.client.Send(ctx, syncclient.Request{
		Endpoint: entry.Kind,
		Method:   http.MethodPost,
		Path:     entry.Endpoint,
		Body:     entry.Payload,
	})
	if result.OK {
		return nil
	}
	if result.Err != nil {
		return result.Err
	}
	return errors.New(result.Reason)
}
