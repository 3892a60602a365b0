package audio

import (
	"math"
	"sync"
)

// LevelMeter is a simple amplitude tap fed with each scheduled frame.
// It exposes the RMS level of the most recent frame, e.g. for driving
// avatar mouth movement.
type LevelMeter struct {
	mu    sync.RWMutex
	level float64
}

// NewLevelMeter creates a meter reading zero
func NewLevelMeter() *LevelMeter {
	return &LevelMeter{}
}

// Observe updates the meter with a frame of normalized samples.
// Empty frames are ignored.
func (m *LevelMeter) Observe(frame []float32) {
	if len(frame) == 0 {
		return
	}

	sum := 0.0
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(frame)))

	m.mu.Lock()
	m.level = rms
	m.mu.Unlock()
}

// Level returns the RMS of the most recently observed frame, in [0, 1]
func (m *LevelMeter) Level() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.level
}

// Reset zeroes the meter, used when playback is interrupted
func (m *LevelMeter) Reset() {
	m.mu.Lock()
	m.level = 0
	m.mu.Unlock()
}
