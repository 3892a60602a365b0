package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/speechpipe/speechpipe/internal/observability"
	"github.com/speechpipe/speechpipe/internal/synth"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// In production, validate origin against the avatar front end's host.
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

const wsWriteTimeout = 10 * time.Second

// ClientMessage is a control message from the avatar client
type ClientMessage struct {
	Type  string `json:"type"` // "speak" or "stop"
	Text  string `json:"text,omitempty"`
	Voice string `json:"voice,omitempty"`
}

// ServerMessage is a control message to the avatar client; PCM audio
// itself travels as binary frames between "start" and "end"
type ServerMessage struct {
	Type        string `json:"type"` // "start", "end", "error"
	UtteranceID string `json:"utterance_id,omitempty"`
	SampleRate  int    `json:"sample_rate,omitempty"`
	Channels    int    `json:"channels,omitempty"`
	Format      string `json:"format,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SpeechSession holds the state of one WebSocket speech stream. A new
// "speak" message supersedes any in-flight utterance: the previous
// upstream read is cancelled before the new one is started, so stale
// audio can never trail into the new utterance.
type SpeechSession struct {
	conn   *websocket.Conn
	synth  *synth.Client
	logger zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

// HandleSpeechWS is the entry point for WebSocket speech connections
func HandleSpeechWS(synthClient *synth.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := observability.WithCorrelationID(observability.NewCorrelationID()).
			With().
			Str("component", "relay_ws").
			Logger()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to upgrade speech stream connection")
			return
		}
		defer conn.Close()

		session := &SpeechSession{
			conn:   conn,
			synth:  synthClient,
			logger: logger,
		}

		observability.StreamOpened()
		defer observability.StreamClosed()

		session.logger.Info().Msg("Speech stream connected")
		session.readLoop()
	}
}

// readLoop processes control messages until the connection drops
func (s *SpeechSession) readLoop() {
	defer func() {
		s.interrupt()
		s.wg.Wait()
		s.logger.Info().Msg("Speech stream closed")
	}()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("Speech stream read error")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.logger.Error().Err(err).Msg("Failed to parse client message")
			continue
		}

		switch msg.Type {
		case "speak":
			s.startUtterance(msg.Text, msg.Voice)
		case "stop":
			s.interrupt()
		default:
			s.logger.Warn().Str("type", msg.Type).Msg("Unknown client message type")
		}
	}
}

// startUtterance supersedes any in-flight utterance and begins streaming a
// new one. It waits for the previous streaming goroutine to exit so frames
// of the old utterance are never interleaved after the new "start".
func (s *SpeechSession) startUtterance(text, voice string) {
	s.interrupt()
	s.wg.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	utteranceID := uuid.New().String()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.streamUtterance(ctx, utteranceID, text, voice)
	}()
}

// interrupt cancels the in-flight utterance, if any
func (s *SpeechSession) interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// streamUtterance relays one utterance's PCM bytes as binary frames
func (s *SpeechSession) streamUtterance(ctx context.Context, utteranceID, text, voice string) {
	logger := s.logger.With().Str("utterance_id", utteranceID).Logger()

	stream, err := s.synth.Synthesize(ctx, text, voice)
	if err != nil {
		if ctx.Err() != nil {
			// Superseded before the upstream responded; expected.
			observability.RecordSynthRequest("aborted")
			return
		}
		s.recordSynthesisFailure(err)
		logger.Error().Err(err).Msg("Synthesis failed")
		s.writeControl(ServerMessage{Type: "error", UtteranceID: utteranceID, Error: err.Error()})
		return
	}
	defer stream.Body.Close()

	observability.RecordSynthRequest("success")

	if err := s.writeControl(ServerMessage{
		Type:        "start",
		UtteranceID: utteranceID,
		SampleRate:  stream.SampleRate,
		Channels:    stream.Channels,
		Format:      stream.Encoding,
	}); err != nil {
		return
	}

	buf := make([]byte, relayChunkSize)
	for {
		n, readErr := stream.Body.Read(buf)
		if n > 0 {
			if ctx.Err() != nil {
				return
			}
			if err := s.writeBinary(buf[:n]); err != nil {
				logger.Debug().Err(err).Msg("Failed to write audio frame")
				return
			}
			observability.RecordStreamedBytes(int64(n))
		}
		if readErr != nil {
			if readErr == io.EOF {
				s.writeControl(ServerMessage{Type: "end", UtteranceID: utteranceID})
			} else if ctx.Err() == nil {
				logger.Warn().Err(readErr).Msg("Upstream speech stream ended abnormally")
				s.writeControl(ServerMessage{Type: "error", UtteranceID: utteranceID, Error: readErr.Error()})
			}
			return
		}
	}
}

func (s *SpeechSession) recordSynthesisFailure(err error) {
	switch {
	case synth.IsValidation(err):
		observability.RecordSynthRequest("validation_error")
	case synth.IsConfiguration(err):
		observability.RecordSynthRequest("config_error")
	default:
		observability.RecordSynthRequest("upstream_error")
	}
}

func (s *SpeechSession) writeControl(msg ServerMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteJSON(msg)
}

func (s *SpeechSession) writeBinary(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}
