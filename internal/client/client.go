// Package client talks to the Soundtrip story service over HTTP.
//
// Every call is bounded by the configured timeout and retried on transport
// errors, 429 and 5xx. Concurrent CreateStory calls with an identical payload
// share one request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"soundtrip/internal/config"
	"soundtrip/internal/logging"
	"soundtrip/internal/story"
)

// RequestIDHeader carries a per-call UUID shared by every retry attempt.
const RequestIDHeader = "X-Request-ID"

const maxResponseBody = 8 << 20

// slowStoryThreshold is when a story generation is logged as slow.
const slowStoryThreshold = 30 * time.Second

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL      string
	HTTPClient   *http.Client
	Timeout      time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	timeout     time.Duration
	maxAttempts int
	baseBackoff time.Duration
	maxBody     int64
	flight      singleflight.Group
	newID       func() string
}

// New constructs a Client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		timeout:     timeout,
		maxAttempts: opts.MaxAttempts,
		baseBackoff: opts.RetryBackoff,
		maxBody:     maxResponseBody,
		newID:       func() string { return uuid.NewString() },
	}
}

// NewFromConfig constructs a Client from the api section of cfg.
func NewFromConfig(cfg *config.Config) *Client {
	return New(Options{
		BaseURL:      cfg.API.BaseURL,
		Timeout:      cfg.GetTimeout(),
		MaxAttempts:  cfg.API.MaxAttempts,
		RetryBackoff: cfg.GetRetryBackoff(),
	})
}

// BaseURL returns the service root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateStory posts req to /v1/stories and decodes the generated story.
// Callers sharing a payload share the result; each caller still honors its
// own ctx.
func (c *Client) CreateStory(ctx context.Context, req story.Request) (*story.Response, error) {
	key := req.Key()
	ch := c.flight.DoChan(key, func() (interface{}, error) {
		// The shared call outlives any single caller's cancellation but not
		// the client timeout.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		timer := logging.StartTimer(logging.CategoryAPI, "CreateStory")
		defer timer.StopWithThreshold(slowStoryThreshold)

		var resp story.Response
		if err := c.doJSON(callCtx, http.MethodPost, "/v1/stories", req, &resp); err != nil {
			return nil, err
		}
		if resp.Chapters == nil {
			resp.Chapters = []story.Chapter{}
		}
		return &resp, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("story client: request canceled: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.(*story.Response)
		out := shared.Clone()
		if res.Shared {
			logging.Get(logging.CategoryAPI).Debug("story request coalesced", zap.String("key", key))
		}
		return &out, nil
	}
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	OK bool   `json:"ok"`
	TS string `json:"ts"`
}

// Health checks that the service is up.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var status HealthStatus
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

type audioResult struct {
	AudioURL *string `json:"audioUrl"`
	Status   string  `json:"status"`
}

// RegenerateAudio asks the service to synthesize audio for a story and
// returns the new relative audio URL.
func (c *Client) RegenerateAudio(ctx context.Context, id string, s story.Response) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: story has no id", ErrAudioUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out audioResult
	path := "/v1/stories/" + url.PathEscape(id) + "/audio"
	if err := c.doJSON(ctx, http.MethodPost, path, s, &out); err != nil {
		return "", err
	}
	if out.Status != "success" || out.AudioURL == nil || *out.AudioURL == "" {
		return "", fmt.Errorf("%w: status %q", ErrAudioUnavailable, out.Status)
	}
	return *out.AudioURL, nil
}

// AudioURL resolves a relative audio path against the base URL. Absolute
// URLs are returned unchanged and an empty path stays empty.
func (c *Client) AudioURL(rel string) string {
	if rel == "" {
		return ""
	}
	if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") {
		return rel
	}
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	return c.baseURL + rel
}

// doJSON sends body (if any) as JSON and decodes a 2xx JSON object into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	log := logging.Get(logging.CategoryAPI)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("story client: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("story client: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := c.newID()
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.doWithRetry(req)
	if err != nil {
		log.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	log.Debug("response received",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("story client: request canceled: %w", ctx.Err())
		}
		return fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}
	if int64(len(data)) > c.maxBody {
		return fmt.Errorf("%w: body exceeds %d bytes", ErrResponseTooLarge, c.maxBody)
	}
	return decodeObject(data, out)
}

// decodeObject accepts only a JSON object. Unknown fields are ignored.
func decodeObject(data []byte, out interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: body is not a JSON object", ErrMalformedResponse)
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}
