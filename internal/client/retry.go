package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"soundtrip/internal/logging"
)

const (
	defaultMaxAttempts = 2
	defaultBackoff     = 500 * time.Millisecond
	maxRetryAfter      = 30 * time.Second
)

// doWithRetry sends req, retrying transport errors, 429 and 5xx. When every
// attempt fails with a retryable status the last response is returned open
// so the caller can turn it into a StatusError.
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	maxAttempts := c.maxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	baseBackoff := c.baseBackoff
	if baseBackoff <= 0 {
		baseBackoff = defaultBackoff
	}

	if req.Body != nil && req.GetBody == nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("story client: read request body: %w", err)
		}
		_ = req.Body.Close()
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(bodyBytes)), nil
		}
	}

	log := logging.Get(logging.CategoryAPI)
	ctx := req.Context()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("story client: request canceled: %w", err)
		}

		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("story client: reset request body: %w", err)
			}
			req.Body = body
		}

		resp, err := c.httpClient.Do(req)
		if err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("story client: request canceled: %w", ctx.Err())
		}
		retryAfter, retry := shouldRetry(resp, err)
		if !retry {
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrTransport, err)
			}
			return resp, nil
		}

		last := attempt == maxAttempts-1
		if last {
			if err != nil {
				return nil, fmt.Errorf("%w after %d attempts: %w", ErrTransport, maxAttempts, err)
			}
			return resp, nil
		}

		fields := []zap.Field{
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxAttempts),
			zap.String("request_id", req.Header.Get(RequestIDHeader)),
		}
		if err != nil {
			log.Warn("retrying after error", append(fields, zap.Error(err))...)
		} else {
			log.Warn("retrying after status", append(fields, zap.Int("status", resp.StatusCode))...)
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
			_ = resp.Body.Close()
		}

		backoff := baseBackoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			backoff = retryAfter
		}
		if err := sleepWithContext(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: no attempts made", ErrTransport)
}

func shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, true
	}
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp), true
	}
	return 0, false
}

func parseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	var d time.Duration
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		d = time.Duration(seconds) * time.Second
	} else if when, err := http.ParseTime(retryAfter); err == nil {
		d = time.Until(when)
	}
	if d <= 0 {
		return 0
	}
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("story client: request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
