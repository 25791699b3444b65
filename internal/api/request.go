package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/rickgao/crypto-scalper/internal/model"
)

// APIError represents an error from the venue API.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte

	// Rejected is set when the venue refused a submitted order.
	Rejected bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("venue api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// Is maps the error onto the model taxonomy so callers can use errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case model.ErrOrderRejected:
		return e.Rejected
	case model.ErrVenueUnavailable:
		return !e.Rejected
	}
	return false
}

// errTransport marks failures below the HTTP layer.
var errTransport = errors.New("transport")

// doRequest performs an HTTP request with the given method, path and optional JSON body.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	signedPath := path
	if len(query) > 0 {
		signedPath += "?" + query.Encode()
	}
	fullURL := c.baseURL + signedPath

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds != nil {
		for k, v := range c.creds.SignRequest(method, signedPath, string(body)) {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: do request: %w", model.ErrVenueUnavailable, errTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", model.ErrVenueUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       respBody,
		}
	}

	return respBody, nil
}

// doWithRetry performs a request with exponential backoff retry. Only
// idempotent requests go through here.
func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.wait(ctx, attempt, &backoff, path); err != nil {
				return nil, err
			}
		}

		respBody, err := c.doRequest(ctx, method, path, query, body)
		if err == nil {
			return respBody, nil
		}

		lastErr = err

		if !isRetryable(ctx, err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// wait sleeps for a jittered backoff (0.5x to 1.5x) and doubles it.
func (c *Client) wait(ctx context.Context, attempt int, backoff *time.Duration, path string) error {
	jitter := *backoff / 2
	if *backoff > 0 {
		jitter += time.Duration(rand.Int64N(int64(*backoff)))
	}
	c.logger.Debug("retrying request",
		"attempt", attempt,
		"backoff", jitter,
		"path", path,
	)

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", model.ErrVenueUnavailable, ctx.Err())
	case <-time.After(jitter):
	}

	*backoff *= 2
	return nil
}

func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return errors.Is(err, errTransport)
}

// get performs a GET request with retries.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	body, err := c.doWithRetry(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: unmarshal response: %w", model.ErrVenueUnavailable, err)
	}

	return nil
}

// post performs a single POST request with a JSON payload. It is never
// retried here: a lost response may hide an accepted order. Client errors
// other than auth and rate limiting are reported as order rejections.
func (c *Client) post(ctx context.Context, path string, payload any, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && isRejection(apiErr.StatusCode) {
			apiErr.Rejected = true
		}
		return err
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("%w: unmarshal response: %w", model.ErrVenueUnavailable, err)
	}
	return nil
}

func isRejection(status int) bool {
	return status >= 400 && status < 500 &&
		status != http.StatusUnauthorized &&
		status != http.StatusForbidden &&
		status != http.StatusTooManyRequests
}

// nextQuery extracts the query of a pagination "next" URL. Returns nil when
// there is no further page.
func nextQuery(next string) (url.Values, error) {
	if next == "" {
		return nil, nil
	}
	u, err := url.Parse(next)
	if err != nil {
		return nil, fmt.Errorf("parse next page url: %w", err)
	}
	return u.Query(), nil
}
