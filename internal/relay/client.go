package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Client consumes the relay's POST /v1/speech endpoint from the playback
// side, delivering PCM chunks to a callback as they arrive
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a relay client for the given base URL
// (e.g. "http://localhost:8080")
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// Stream requests synthesis of text and invokes onChunk for every chunk of
// PCM bytes as it is received, in order. It returns once the stream ends.
// Cancelling ctx aborts the in-flight read; the resulting error is
// ctx.Err(), which callers treat as barge-in rather than failure.
func (c *Client) Stream(ctx context.Context, text, voice string, onChunk func([]byte)) error {
	body, err := json.Marshal(SpeechRequest{Text: text, Voice: voice})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/speech", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&errResp); decodeErr == nil && errResp.Error != "" {
			return fmt.Errorf("speech relay returned status %d: %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("speech relay returned status %d", resp.StatusCode)
	}

	buf := make([]byte, relayChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			onChunk(chunk)
		}
		if readErr != nil {
			if readErr == io.EOF {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("speech stream read failed: %w", readErr)
		}
	}
}

// SampleRateFromHeader parses the X-Sample-Rate response header, returning
// fallback when absent or malformed
func SampleRateFromHeader(h http.Header, fallback int) int {
	if v := h.Get("X-Sample-Rate"); v != "" {
		if rate, err := strconv.Atoi(v); err == nil && rate > 0 {
			return rate
		}
	}
	return fallback
}
