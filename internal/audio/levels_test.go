package audio

import (
	"math"
	"testing"
)

func TestLevelMeter_Silence(t *testing.T) {
	m := NewLevelMeter()

	m.Observe(make([]float32, 480))
	if m.Level() != 0 {
		t.Errorf("Expected level 0 for silence, got %f", m.Level())
	}
}

func TestLevelMeter_FullScale(t *testing.T) {
	m := NewLevelMeter()

	frame := make([]float32, 480)
	for i := range frame {
		frame[i] = 1.0
	}
	m.Observe(frame)
	if math.Abs(m.Level()-1.0) > 1e-9 {
		t.Errorf("Expected level 1.0 for full-scale signal, got %f", m.Level())
	}
}

func TestLevelMeter_IgnoresEmptyFrame(t *testing.T) {
	m := NewLevelMeter()

	frame := []float32{0.5, -0.5}
	m.Observe(frame)
	before := m.Level()

	m.Observe(nil)
	if m.Level() != before {
		t.Errorf("Empty frame changed level from %f to %f", before, m.Level())
	}
}

func TestLevelMeter_Reset(t *testing.T) {
	m := NewLevelMeter()

	m.Observe([]float32{0.8, 0.8})
	m.Reset()
	if m.Level() != 0 {
		t.Errorf("Expected level 0 after reset, got %f", m.Level())
	}
}
