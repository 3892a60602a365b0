package playback

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/speechpipe/speechpipe/internal/audio"
	"github.com/speechpipe/speechpipe/internal/observability"
)

// UnlockState is the lifecycle state of the gated audio output
type UnlockState int

const (
	// StateUninitialized means no output device has been constructed yet.
	StateUninitialized UnlockState = iota
	// StateLocked means the device exists but is suspended by platform
	// policy; chunks are buffered until a successful unlock.
	StateLocked
	// StateRunning means audio is flowing; chunks are decoded and
	// scheduled immediately.
	StateRunning
)

func (s UnlockState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLocked:
		return "locked"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Gate buffers incoming audio chunks until the platform permits output.
// Autoplay policies forbid audio until a user gesture; Unlock is called
// from such a gesture and may still be denied, in which case the gate
// keeps buffering and a later Unlock retries. Repeated Unlock calls are
// no-ops once running.
type Gate struct {
	factory    OutputFactory
	sampleRate int
	prime      bool
	logger     zerolog.Logger

	mu      sync.Mutex
	state   UnlockState
	out     Output
	sched   *Scheduler
	dec     *audio.Decoder
	meter   *audio.LevelMeter
	pending *audio.ChunkQueue
}

// NewGate creates a locked gate. The decoder and meter are owned by the
// session and shared with the gate so barge-in can reset them.
func NewGate(factory OutputFactory, dec *audio.Decoder, meter *audio.LevelMeter, sampleRate int, prime bool) *Gate {
	return &Gate{
		factory:    factory,
		sampleRate: sampleRate,
		prime:      prime,
		logger:     observability.GetLogger().With().Str("component", "gate").Logger(),
		state:      StateUninitialized,
		dec:        dec,
		meter:      meter,
		pending:    audio.NewChunkQueue(),
	}
}

// Submit accepts one raw audio chunk. When running it is decoded and
// scheduled immediately; otherwise it joins the pending queue in arrival
// order and, if a suspended device exists, a resume is requested without
// blocking the caller.
func (g *Gate) Submit(chunk []byte) {
	g.mu.Lock()

	// The platform can suspend the device underneath us (e.g. the page is
	// backgrounded); fall back to buffering until the next unlock.
	if g.state == StateRunning && g.out != nil && !g.out.Running() {
		g.state = StateLocked
		g.logger.Debug().Msg("Audio output suspended, buffering resumed")
	}

	if g.state == StateRunning {
		frame := g.dec.Decode(chunk)
		g.sched.Enqueue(frame)
		g.mu.Unlock()
		return
	}

	g.pending.Push(chunk)
	observability.SetPendingChunks(g.pending.Len())
	out := g.out
	g.mu.Unlock()

	if out != nil && !out.Running() {
		// Fire-and-forget; if the platform still refuses, the chunks stay
		// queued for the next unlock.
		go func() {
			if err := out.Resume(context.Background()); err != nil {
				g.logger.Debug().Err(err).Msg("Audio output resume denied")
			}
		}()
	}
}

// Unlock constructs the output device if needed, brings it to running and
// drains the pending queue in FIFO order. Denial by platform policy is not
// an error: the gate stays locked, keeps buffering, and a later Unlock
// retries. Returns nil when already running.
func (g *Gate) Unlock(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateRunning && g.out != nil && g.out.Running() {
		return nil
	}

	if g.out == nil {
		out, err := g.factory()
		if err != nil {
			g.logger.Debug().Err(err).Msg("Audio output construction denied, still buffering")
			return nil
		}
		g.out = out
		g.state = StateLocked
	}

	if !g.out.Running() {
		if err := g.out.Resume(ctx); err != nil {
			g.logger.Debug().Err(err).Msg("Audio output resume denied, still buffering")
			g.state = StateLocked
			return nil
		}
	}

	if g.sched == nil {
		g.sched = NewScheduler(g.out, g.sampleRate, g.meter)
	}

	if g.prime {
		// One silent sample; some mobile platforms only release the output
		// after an explicit play. Harmless elsewhere.
		buf := g.out.CreateBuffer([]float32{0}, g.sampleRate)
		g.out.Play(buf, g.out.CurrentTime(), nil)
	}

	g.sched.Realign()
	g.state = StateRunning

	drained := g.pending.Drain()
	for _, chunk := range drained {
		g.sched.Enqueue(g.dec.Decode(chunk))
	}
	observability.SetPendingChunks(0)

	g.logger.Info().Int("drained_chunks", len(drained)).Msg("Audio output unlocked")
	return nil
}

// Interrupt halts everything scheduled, clears the decoder remainder and,
// while not running, discards the pending queue: undelivered audio for a
// superseded utterance must never play later.
func (g *Gate) Interrupt() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sched != nil {
		g.sched.Reset()
	}
	g.dec.Reset()
	if g.state != StateRunning {
		g.pending.Clear()
		observability.SetPendingChunks(0)
	}
}

// State returns the current unlock state
func (g *Gate) State() UnlockState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// PendingChunks returns the number of buffered chunks
func (g *Gate) PendingChunks() int {
	return g.pending.Len()
}

// Scheduler returns the scheduler, or nil before the first successful
// unlock
func (g *Gate) Scheduler() *Scheduler {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sched
}

// Close stops scheduled audio and releases the output device
func (g *Gate) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sched != nil {
		g.sched.Reset()
		g.sched = nil
	}
	g.pending.Clear()
	observability.SetPendingChunks(0)

	if g.out != nil {
		err := g.out.Close()
		g.out = nil
		g.state = StateUninitialized
		return err
	}
	g.state = StateUninitialized
	return nil
}
