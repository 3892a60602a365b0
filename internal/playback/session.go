package playback

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/speechpipe/speechpipe/internal/audio"
	"github.com/speechpipe/speechpipe/internal/observability"
)

// Synthesizer streams PCM bytes for one utterance, calling onChunk for
// each chunk in arrival order. Implemented by relay.Client.
type Synthesizer interface {
	Stream(ctx context.Context, text, voice string, onChunk func([]byte)) error
}

// SessionConfig configures a playback session
type SessionConfig struct {
	SampleRate int  // PCM sample rate, e.g. 24000
	Prime      bool // Play one silent sample on unlock (mobile output quirk)
}

// Session is the playback handle the conversation layer drives. It owns
// the decoder, gate, scheduler and amplitude meter for one client, and
// exists for as long as avatar audio is enabled.
//
// The conversation layer calls Interrupt before each new utterance and
// Unlock at least once from a user gesture.
type Session struct {
	gate   *Gate
	dec    *audio.Decoder
	meter  *audio.LevelMeter
	synth  Synthesizer
	logger zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc // aborts the in-flight utterance fetch
}

// NewSession creates a playback session. synth may be nil when chunks are
// fed directly through EnqueueBytes.
func NewSession(factory OutputFactory, synth Synthesizer, cfg SessionConfig) *Session {
	dec := audio.NewDecoder()
	meter := audio.NewLevelMeter()
	return &Session{
		gate:   NewGate(factory, dec, meter, cfg.SampleRate, cfg.Prime),
		dec:    dec,
		meter:  meter,
		synth:  synth,
		logger: observability.GetLogger().With().Str("component", "playback").Logger(),
	}
}

// EnqueueBytes feeds one raw PCM chunk into the pipeline
func (s *Session) EnqueueBytes(chunk []byte) {
	s.gate.Submit(chunk)
}

// Unlock attempts to bring audio output to running; call from a user
// gesture. Idempotent; platform denial is silent and retried on the next
// call.
func (s *Session) Unlock(ctx context.Context) error {
	return s.gate.Unlock(ctx)
}

// Interrupt performs barge-in: it cancels the in-flight utterance fetch,
// stops and unschedules all audio, resets the playback clock and decoder
// remainder, and drops any undelivered chunks of the superseded utterance.
func (s *Session) Interrupt() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.gate.Interrupt()
	observability.RecordBargeIn()
}

// Speak streams synthesis of text through the pipeline, returning when the
// utterance has been fully submitted. Being superseded by Interrupt is the
// expected outcome of barge-in and is not reported as an error.
func (s *Session) Speak(ctx context.Context, text, voice string) error {
	if s.synth == nil {
		return errors.New("no synthesizer attached to session")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	err := s.synth.Stream(ctx, text, voice, s.gate.Submit)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Debug().Msg("Utterance superseded")
			return nil
		}
		return err
	}
	return nil
}

// Level returns the RMS amplitude of the most recently scheduled frame,
// e.g. for driving avatar mouth movement
func (s *Session) Level() float64 {
	return s.meter.Level()
}

// State returns the unlock state of the underlying gate
func (s *Session) State() UnlockState {
	return s.gate.State()
}

// PendingChunks returns the number of chunks buffered behind the gate
func (s *Session) PendingChunks() int {
	return s.gate.PendingChunks()
}

// Close tears the session down: in-flight fetches are cancelled and the
// output device is released
func (s *Session) Close() error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	return s.gate.Close()
}
