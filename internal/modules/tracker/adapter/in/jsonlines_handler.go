package in

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	trackerdto "studytrack/internal/modules/tracker/dto"
	trackerin "studytrack/internal/modules/tracker/port/in"
	"studytrack/internal/platform/logging"
)

// maxLine bounds a single event line.
const maxLine = 64 * 1024

type StreamStats struct {
	Handled  int
	Rejected int
}

// JSONLinesHandler reads one event object per line. Bad lines are logged and
// skipped; the stream keeps going.
type JSONLinesHandler struct {
	usecase trackerin.Usecase
}

func NewJSONLinesHandler(usecase trackerin.Usecase) JSONLinesHandler {
	return JSONLinesHandler{usecase: usecase}
}

type streamLine struct {
	text      string
	oversized bool
}

// Serve consumes r until EOF or until ctx is done. It returns ctx.Err() in
// the latter case and nil on a clean EOF. A line longer than maxLine is
// discarded and counted as rejected.
func (h JSONLinesHandler) Serve(ctx context.Context, r io.Reader) (StreamStats, error) {
	lines := make(chan streamLine)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		readErr <- readLines(ctx, bufio.NewReaderSize(r, maxLine), lines)
	}()

	stats := StreamStats{}
	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil && ctx.Err() == nil {
					return stats, fmt.Errorf("read event stream: %w", err)
				}
				return stats, ctx.Err()
			}
			if line.oversized {
				logging.Warn().Int("max_bytes", maxLine).Msg("skip oversized event line")
				stats.Rejected++
				continue
			}
			text := strings.TrimSpace(line.text)
			if text == "" {
				continue
			}
			if h.handleLine(ctx, text) {
				stats.Handled++
			} else {
				stats.Rejected++
			}
		}
	}
}

func readLines(ctx context.Context, br *bufio.Reader, out chan<- streamLine) error {
	for {
		raw, err := br.ReadSlice('\n')
		line := streamLine{text: string(raw)}
		if errors.Is(err, bufio.ErrBufferFull) {
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = br.ReadSlice('\n')
			}
			line = streamLine{oversized: true}
		}
		if line.oversized || line.text != "" {
			select {
			case out <- line:
			case <-ctx.Done():
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (h JSONLinesHandler) handleLine(ctx context.Context, line string) bool {
	input := trackerdto.EventInput{}
	if err := json.Unmarshal([]byte(line), &input); err != nil {
		logging.Warn().Err(err).Msg("skip malformed event line")
		return false
	}
	out, err := h.usecase.Handle(ctx, input)
	if err != nil {
		logging.Warn().Err(err).Str("event", input.Event).Msg("event rejected")
		return false
	}
	logging.Debug().Str("event", out.Event).Str("session_id", out.SessionID).Bool("sent", out.Sent).Bool("ignored", out.Ignored).Msg("event handled")
	return true
}
