package square

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	// ErrUnauthorized marks a 401: the access token is expired or invalid
	// and the token refresh path should run.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPermissionDenied marks a 403 on a specific resource (a feature the
	// merchant is not entitled to). Callers downgrade that resource to zero
	// results and continue instead of aborting the sync.
	ErrPermissionDenied = errors.New("permission denied")
)

// TransportError wraps connection-level failures (and an open circuit) so
// callers never see raw transport errors.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "square: transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is any non-2xx response not covered by a sentinel error.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("square: status %d: %s", e.StatusCode, e.Body)
}

// Response is a successful (2xx) API response body.
type Response struct {
	StatusCode int
	Body       []byte
}

const maxResponseBytes = 4 << 20

// Client issues authenticated requests against the Square API. It attaches
// the pinned Square-Version header and bearer auth, carries a per-call
// timeout, and converts failures into typed errors. It does not retry;
// retry policy belongs to the callers' next scheduled cycle.
type Client struct {
	baseURL string
	version string
	httpc   *http.Client
	breaker *gobreaker.CircuitBreaker[*Response]
	logger  *log.Logger
}

// NewClient builds a Client for the given API base URL and version pin.
func NewClient(baseURL, version string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		version: version,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        "square-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("square: circuit %s %s -> %s", name, from, to)
		},
	})
	return c
}

// Do issues one request. Transport failures and 5xx responses count against
// the circuit breaker; 4xx responses do not (they reflect the caller's
// entitlements, not API health).
func (c *Client) Do(ctx context.Context, method, endpoint, accessToken string, body interface{}) (*Response, error) {
	resp, err := c.breaker.Execute(func() (*Response, error) {
		return c.send(ctx, method, endpoint, accessToken, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &TransportError{Err: err}
		}
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%s: %w", endpoint, ErrUnauthorized)
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%s: %w", endpoint, ErrPermissionDenied)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(resp.Body)}
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, endpoint, accessToken string, body interface{}) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	url := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Square-Version", c.version)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if resp.StatusCode >= 500 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(b)}
	}
	return &Response{StatusCode: resp.StatusCode, Body: b}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, accessToken string, out interface{}) error {
	resp, err := c.Do(ctx, http.MethodGet, endpoint, accessToken, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, endpoint, accessToken string, body, out interface{}) error {
	resp, err := c.Do(ctx, http.MethodPost, endpoint, accessToken, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

func truncate(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
