// Package syncclient performs best-effort, time-bounded writes to the remote
// progress service. Failures come back as a Result and are never raised to
// the caller; routing a failed payload to the outbox is the caller's job.
package syncclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"studytrack/internal/platform/logging"
	"studytrack/internal/platform/metrics"
)

// DefaultTimeout is the contract bound on a single write.
const DefaultTimeout = 5 * time.Second

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	// BreakerFailures is how many consecutive failures open the circuit.
	// Zero disables the breaker.
	BreakerFailures uint32
	// BreakerCooldown is how long the circuit stays open before probing.
	BreakerCooldown time.Duration
}

type Request struct {
	// Endpoint is a short label for metrics and logs, e.g. "video_progress".
	Endpoint string
	Method   string
	Path     string
	Body     []byte
}

type Result struct {
	OK         bool
	StatusCode int
	TimedOut   bool
	Reason     string
	Err        error
}

func success(status int) Result {
	return Result{OK: true, StatusCode: status}
}

func failure(status int, reason string, err error) Result {
	return Result{StatusCode: status, Reason: reason, Err: err}
}

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[int]
}

var errServerStatus = errors.New("server error status")

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		timeout: timeout,
	}
	if cfg.BreakerFailures > 0 {
		cooldown := cfg.BreakerCooldown
		if cooldown <= 0 {
			cooldown = 30 * time.Second
		}
		threshold := cfg.BreakerFailures
		c.cb = gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
			Name:        "progress-service",
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
				metrics.CircuitBreakerState.Set(stateValue(to))
			},
		})
	}
	return c
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Send races the write against the client timeout. Whichever settles first
// decides the Result.
func (c *Client) Send(ctx context.Context, req Request) Result {
	start := time.Now()
	result := c.execute(ctx, req)
	metrics.SyncDuration.WithLabelValues(req.Endpoint).Observe(time.Since(start).Seconds())
	metrics.SyncRequests.WithLabelValues(req.Endpoint, outcome(result)).Inc()
	if !result.OK {
		logging.Debug().Str("endpoint", req.Endpoint).Str("path", req.Path).Int("status", result.StatusCode).Str("reason", result.Reason).Msg("progress write failed")
	}
	return result
}

// SendJSON encodes payload and sends it with POST.
func (c *Client) SendJSON(ctx context.Context, endpoint, path string, payload any) Result {
	body, err := json.Marshal(payload)
	if err != nil {
		return failure(0, "encode payload", fmt.Errorf("encode %s payload: %w", endpoint, err))
	}
	return c.Send(ctx, Request{Endpoint: endpoint, Method: http.MethodPost, Path: path, Body: body})
}

func outcome(r Result) string {
	switch {
	case r.OK:
		return "success"
	case r.TimedOut:
		return "timeout"
	case errors.Is(r.Err, gobreaker.ErrOpenState), errors.Is(r.Err, gobreaker.ErrTooManyRequests):
		return "rejected"
	default:
		return "failure"
	}
}

func (c *Client) execute(ctx context.Context, req Request) Result {
	if c.cb == nil {
		return c.do(ctx, req)
	}
	var result Result
	_, err := c.cb.Execute(func() (int, error) {
		result = c.do(ctx, req)
		if result.OK || (result.StatusCode >= 400 && result.StatusCode < 500) {
			return result.StatusCode, nil
		}
		if result.Err != nil {
			return result.StatusCode, result.Err
		}
		return result.StatusCode, errServerStatus
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return failure(0, "circuit open", err)
	}
	return result
}

func (c *Client) do(ctx context.Context, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+req.Path, bytes.NewReader(req.Body))
	if err != nil {
		return failure(0, "build request", fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			r := failure(0, "timeout", err)
			r.TimedOut = true
			return r
		}
		return failure(0, "network error", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failure(resp.StatusCode, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}
	return success(resp.StatusCode)
}
