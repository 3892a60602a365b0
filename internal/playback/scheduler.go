package playback

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/speechpipe/speechpipe/internal/audio"
	"github.com/speechpipe/speechpipe/internal/observability"
)

// Scheduler places decoded frames on the output clock with no gaps and no
// overlaps: each segment starts exactly where the previous one ends, or at
// the current output time if the clock has fallen behind real time.
type Scheduler struct {
	out        Output
	sampleRate int
	meter      *audio.LevelMeter
	logger     zerolog.Logger

	mu     sync.Mutex
	clock  float64 // next free start time on the output clock
	nextID uint64
	active map[uint64]Playing
}

// NewScheduler creates a scheduler whose clock starts at the output's
// current time. meter may be nil.
func NewScheduler(out Output, sampleRate int, meter *audio.LevelMeter) *Scheduler {
	return &Scheduler{
		out:        out,
		sampleRate: sampleRate,
		meter:      meter,
		logger:     observability.GetLogger().With().Str("component", "scheduler").Logger(),
		clock:      out.CurrentTime(),
		active:     make(map[uint64]Playing),
	}
}

// Enqueue schedules one frame to start when the previously scheduled frame
// ends, never earlier than the current output time. Empty frames are
// dropped (an odd-length chunk can decode to nothing).
func (s *Scheduler) Enqueue(frame []float32) {
	if len(frame) == 0 {
		return
	}

	buf := s.out.CreateBuffer(frame, s.sampleRate)

	s.mu.Lock()
	start := s.clock
	if now := s.out.CurrentTime(); now > start {
		start = now
	}

	id := s.nextID
	s.nextID++
	s.active[id] = nil

	playing := s.out.Play(buf, start, func() { s.finished(id) })
	if _, ok := s.active[id]; ok {
		s.active[id] = playing
	}

	s.clock = start + buf.Duration()
	s.mu.Unlock()

	if s.meter != nil {
		s.meter.Observe(frame)
	}
	observability.RecordSegmentScheduled()
}

// finished drops a segment from tracking once it has played out
func (s *Scheduler) finished(id uint64) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
}

// Reset stops every tracked segment immediately and realigns the clock to
// the current output time, so the next enqueue never schedules into the
// past or onto a stale future time.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	stopped := len(s.active)
	for _, p := range s.active {
		if p != nil {
			p.Stop()
		}
	}
	s.active = make(map[uint64]Playing)
	s.clock = s.out.CurrentTime()
	s.mu.Unlock()

	if s.meter != nil {
		s.meter.Reset()
	}
	if stopped > 0 {
		s.logger.Debug().Int("segments", stopped).Msg("Stopped scheduled audio")
	}
}

// Realign moves the clock to the current output time. Used after unlock,
// when the clock may predate the device actually running.
func (s *Scheduler) Realign() {
	s.mu.Lock()
	s.clock = s.out.CurrentTime()
	s.mu.Unlock()
}

// Clock returns the next free start time
func (s *Scheduler) Clock() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// ActiveSegments returns the number of segments scheduled but not finished
func (s *Scheduler) ActiveSegments() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}
