package relay

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/speechpipe/speechpipe/internal/observability"
	"github.com/speechpipe/speechpipe/internal/synth"
)

const relayChunkSize = 4096

// SpeechRequest is the JSON body of POST /v1/speech
type SpeechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// ErrorResponse is the JSON body of every non-success response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves the speech relay HTTP surface
type Handler struct {
	synth  *synth.Client
	logger zerolog.Logger
}

// NewHandler creates a relay handler backed by the given synthesis client
func NewHandler(synthClient *synth.Client) *Handler {
	return &Handler{
		synth:  synthClient,
		logger: observability.GetLogger().With().Str("component", "relay").Logger(),
	}
}

// HandleSpeech relays one synthesis request. The upstream body is streamed
// to the caller chunk by chunk: the first byte goes out as soon as it
// arrives, and at most one chunk is held in memory at a time.
func (h *Handler) HandleSpeech(w http.ResponseWriter, r *http.Request) {
	var req SpeechRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		observability.RecordSynthRequest("validation_error")
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	stream, err := h.synth.Synthesize(r.Context(), req.Text, req.Voice)
	if err != nil {
		h.writeSynthesisError(w, r, err)
		return
	}
	defer stream.Body.Close()

	observability.RecordSynthRequest("success")

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Sample-Rate", strconv.Itoa(stream.SampleRate))
	w.Header().Set("X-Channels", strconv.Itoa(stream.Channels))
	w.Header().Set("X-Sample-Format", "s16le")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	var total int64
	buf := make([]byte, relayChunkSize)
	for {
		n, readErr := stream.Body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				// Caller went away or was superseded; expected during barge-in.
				h.logger.Debug().Err(writeErr).Msg("Caller stopped reading speech stream")
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			total += int64(n)
			observability.RecordStreamedBytes(int64(n))
		}
		if readErr != nil {
			if readErr != io.EOF && r.Context().Err() == nil {
				h.logger.Warn().Err(readErr).Msg("Upstream speech stream ended abnormally")
			}
			break
		}
	}

	h.logger.Debug().Int64("bytes", total).Msg("Speech stream complete")
}

// writeSynthesisError maps the synthesis error taxonomy onto HTTP statuses
func (h *Handler) writeSynthesisError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		// Request aborted by the caller; nothing useful to write.
		observability.RecordSynthRequest("aborted")
		return
	}

	switch {
	case synth.IsValidation(err):
		observability.RecordSynthRequest("validation_error")
		writeError(w, http.StatusBadRequest, err.Error())
	case synth.IsConfiguration(err):
		observability.RecordSynthRequest("config_error")
		h.logger.Error().Err(err).Msg("Synthesis misconfigured")
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		observability.RecordSynthRequest("upstream_error")
		h.logger.Error().Err(err).Msg("Synthesis upstream failed")
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
