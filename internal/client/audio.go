package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"soundtrip/internal/logging"
)

// DownloadAudio streams the mp3 at rel into w and returns the byte count.
// The service answers a missing file with a JSON error body, which is
// reported as ErrAudioUnavailable.
func (c *Client) DownloadAudio(ctx context.Context, rel string, w io.Writer) (int64, error) {
	target := c.AudioURL(rel)
	if target == "" {
		return 0, fmt.Errorf("%w: story has no audio url", ErrAudioUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("story client: %w", err)
	}
	req.Header.Set(RequestIDHeader, c.newID())

	resp, err := c.doWithRetry(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("%w: %w", ErrAudioUnavailable, &StatusError{StatusCode: resp.StatusCode})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return 0, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType == "application/json" {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return 0, fmt.Errorf("%w: %s", ErrAudioUnavailable, strings.TrimSpace(string(data)))
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return n, fmt.Errorf("story client: download canceled: %w", ctx.Err())
		}
		return n, fmt.Errorf("story client: download audio: %w", err)
	}
	logging.Get(logging.CategoryAPI).Info("audio downloaded", zap.String("url", target), zap.Int64("bytes", n))
	return n, nil
}
