package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/speechpipe/speechpipe/internal/config"
	"github.com/speechpipe/speechpipe/internal/observability"
	"github.com/speechpipe/speechpipe/internal/resilience"
)

const cartesiaVersion = "2024-06-10"

// Client calls the Cartesia TTS API asking for streaming raw PCM output.
// It hands the response body to the caller as soon as the status line
// arrives; the utterance is never accumulated in memory.
type Client struct {
	apiKey     string
	apiURL     string
	voiceID    string
	modelID    string
	sampleRate int
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	retryCfg   *resilience.RetryConfig
	logger     zerolog.Logger
}

// synthesisRequest is the request payload for the Cartesia bytes endpoint
type synthesisRequest struct {
	ModelID      string       `json:"model_id"`
	Transcript   string       `json:"transcript"`
	Voice        voiceSpec    `json:"voice"`
	OutputFormat outputFormat `json:"output_format"`
}

type voiceSpec struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type outputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

// Stream is an open synthesis response. The caller owns Body and must
// close it; reading it delivers PCM bytes as the upstream produces them.
type Stream struct {
	Body       io.ReadCloser
	SampleRate int
	Channels   int
	Encoding   string
}

// NewClient creates a synthesis client from configuration
func NewClient(cfg *config.Config) *Client {
	return &Client{
		apiKey:     cfg.CartesiaAPIKey,
		apiURL:     cfg.CartesiaAPIURL,
		voiceID:    cfg.CartesiaVoiceID,
		modelID:    cfg.CartesiaModelID,
		sampleRate: cfg.SampleRate,
		httpClient: &http.Client{},
		breaker: resilience.NewCircuitBreaker(
			"cartesia",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		retryCfg: &resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		},
		logger: observability.GetLogger().With().Str("component", "synth").Logger(),
	}
}

// Configured reports whether an upstream credential is present
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Synthesize opens a streaming synthesis request for text. The returned
// Stream's body yields raw PCM16LE mono at the client's sample rate.
// Cancelling ctx aborts the request and any in-flight read of the body.
//
// Empty or whitespace text fails with ErrEmptyText without touching the
// upstream; a missing credential fails with ErrMissingCredentials.
func (c *Client) Synthesize(ctx context.Context, text, voice string) (*Stream, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if c.apiKey == "" {
		return nil, ErrMissingCredentials
	}
	if voice == "" {
		voice = c.voiceID
	}

	if !c.breaker.Allow() {
		c.publishBreakerState()
		return nil, ErrUpstreamUnavailable
	}

	reqBody := synthesisRequest{
		ModelID:    c.modelID,
		Transcript: text,
		Voice:      voiceSpec{Mode: "id", ID: voice},
		OutputFormat: outputFormat{
			Container:  "raw",
			Encoding:   "pcm_s16le",
			SampleRate: c.sampleRate,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()

	// Retry only the connection attempt; once the response status has
	// arrived the stream is handed to the caller and never replayed.
	var resp *http.Response
	err = resilience.Retry(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonData))
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", c.apiKey)
		req.Header.Set("Cartesia-Version", cartesiaVersion)

		r, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return doErr
		}
		resp = r
		return nil
	}, c.retryCfg, resilience.IsRetryableNetworkError)

	if err != nil {
		if ctx.Err() != nil {
			// Superseded or caller gone; not an upstream failure.
			return nil, ctx.Err()
		}
		c.breaker.RecordResult(false)
		c.publishBreakerState()
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}

	observability.RecordSynthFirstByte(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		message := readErrorMessage(resp.Body)
		resp.Body.Close()
		c.breaker.RecordResult(false)
		c.publishBreakerState()
		return nil, &UpstreamError{Status: resp.StatusCode, Message: message}
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		c.breaker.RecordResult(false)
		c.publishBreakerState()
		return nil, &UpstreamError{Status: resp.StatusCode, Message: "upstream returned no streamable body"}
	}

	c.breaker.RecordResult(true)
	c.publishBreakerState()

	c.logger.Debug().
		Str("voice", voice).
		Int("text_len", len(text)).
		Dur("first_byte", time.Since(start)).
		Msg("Synthesis stream opened")

	return &Stream{
		Body:       resp.Body,
		SampleRate: c.sampleRate,
		Channels:   1,
		Encoding:   "pcm_s16le",
	}, nil
}

// HealthCheck reports whether the client is usable. It validates
// configuration only; no upstream call is made to avoid API costs.
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	if !c.Configured() {
		return false, ErrMissingCredentials
	}
	return true, nil
}

func (c *Client) publishBreakerState() {
	observability.UpdateCircuitBreakerState(c.breaker.Name(), int(c.breaker.State()))
}

// readErrorMessage extracts a short error message from an upstream
// non-success body
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	// Upstream errors are usually JSON {"error": "..."}; fall back to the
	// raw body when they are not.
	var parsed struct {
		Error string `json:"error"`
	}
	if jsonErr := json.Unmarshal(data, &parsed); jsonErr == nil && parsed.Error != "" {
		return parsed.Error
	}
	return strings.TrimSpace(string(data))
}

// IsValidation reports whether err is a request validation failure
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyText)
}

// IsConfiguration reports whether err is a missing-credential failure
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrMissingCredentials)
}

// IsUpstream reports whether err came from the upstream service
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) || errors.Is(err, ErrUpstreamUnavailable)
}
