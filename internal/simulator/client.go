// Package simulator talks to the expected-score engine service.
package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/MikeSquared-Agency/Strokes/internal/metrics"
)

type Client interface {
	ExpectedScore(ctx context.Context, stats map[string]float64) (float64, error)
	Health(ctx context.Context) error
}

type CalculateRequest struct {
	Stats map[string]float64 `json:"stats"`
}

type CalculateResponse struct {
	ExpectedScore float64  `json:"expected_score"`
	States        []string `json:"states,omitempty"`
}

// StatusError is a non-2xx reply from the engine.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine %s %s: %d %s", e.Method, e.Path, e.Code, e.Body)
}

type HTTPClient struct {
	baseURL        string
	httpClient     *http.Client
	maxRetries     uint64
	initialBackoff time.Duration
}

func NewHTTPClient(baseURL string, timeout time.Duration, maxRetries int) *HTTPClient {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &HTTPClient{
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: timeout},
		maxRetries:     uint64(maxRetries),
		initialBackoff: 100 * time.Millisecond,
	}
}

// doReq retries transport errors and 5xx replies. 4xx replies are final.
func (c *HTTPClient) doReq(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
	}

	var out []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 400 {
			serr := &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
			if resp.StatusCode < 500 {
				return backoff.Permanent(serr)
			}
			return serr
		}
		out = data
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initialBackoff
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(eb, c.maxRetries), ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ExpectedScore(ctx context.Context, stats map[string]float64) (float64, error) {
	start := time.Now()
	defer func() { metrics.EngineLatency.Observe(time.Since(start).Seconds()) }()

	data, err := c.doReq(ctx, http.MethodPost, "/calculate", CalculateRequest{Stats: stats})
	if err != nil {
		return 0, err
	}
	var resp CalculateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return resp.ExpectedScore, nil
}

func (c *HTTPClient) Health(ctx context.Context) error {
	_, err := c.doReq(ctx, http.MethodGet, "/health", nil)
	return err
}
