package playback

import (
	"math"
	"testing"

	"github.com/speechpipe/speechpipe/internal/audio"
)

const testRate = 24000

// frameOf builds a frame lasting the given number of milliseconds
func frameOf(ms int) []float32 {
	return make([]float32, testRate*ms/1000)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScheduler_GaplessScheduling(t *testing.T) {
	out := newFakeOutput()
	out.running = true
	s := NewScheduler(out, testRate, nil)

	s.Enqueue(frameOf(100))
	s.Enqueue(frameOf(50))
	s.Enqueue(frameOf(200))

	segs := out.segmentList()
	if len(segs) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(segs))
	}

	// Each segment starts exactly when the previous one ends.
	wantStarts := []float64{0, 0.1, 0.15}
	for i, seg := range segs {
		if !almostEqual(seg.start, wantStarts[i]) {
			t.Errorf("Segment %d starts at %f, want %f", i, seg.start, wantStarts[i])
		}
	}
	if !almostEqual(s.Clock(), 0.35) {
		t.Errorf("Clock at %f, want 0.35", s.Clock())
	}
}

func TestScheduler_FirstStartAtOrAfterCurrentTime(t *testing.T) {
	out := newFakeOutput()
	out.running = true
	out.advance(0.5)
	s := NewScheduler(out, testRate, nil)

	s.Enqueue(frameOf(100))

	segs := out.segmentList()
	if segs[0].start < 0.5 {
		t.Errorf("First segment starts at %f, before current time 0.5", segs[0].start)
	}
}

func TestScheduler_CatchesUpWhenClockFallsBehind(t *testing.T) {
	out := newFakeOutput()
	out.running = true
	s := NewScheduler(out, testRate, nil)

	s.Enqueue(frameOf(100)) // plays 0.0 - 0.1

	// Real time overtakes the scheduled audio.
	out.advance(1.0)
	s.Enqueue(frameOf(100))

	segs := out.segmentList()
	if !almostEqual(segs[1].start, 1.0) {
		t.Errorf("Late segment starts at %f, want 1.0 (current time)", segs[1].start)
	}
	if !almostEqual(s.Clock(), 1.1) {
		t.Errorf("Clock at %f, want 1.1", s.Clock())
	}
}

func TestScheduler_EmptyFrameIgnored(t *testing.T) {
	out := newFakeOutput()
	out.running = true
	s := NewScheduler(out, testRate, nil)

	s.Enqueue(nil)
	s.Enqueue([]float32{})

	if len(out.segmentList()) != 0 {
		t.Errorf("Empty frames must not schedule segments, got %d", len(out.segmentList()))
	}
}

func TestScheduler_ResetStopsEverythingAndRealignsClock(t *testing.T) {
	out := newFakeOutput()
	out.running = true
	s := NewScheduler(out, testRate, nil)

	s.Enqueue(frameOf(100))
	s.Enqueue(frameOf(100))
	s.Enqueue(frameOf(100))

	out.advance(0.05) // mid-first-segment
	s.Reset()

	for i, seg := range out.segmentList() {
		if !seg.stopped {
			t.Errorf("Segment %d not stopped by reset", i)
		}
	}
	if s.ActiveSegments() != 0 {
		t.Errorf("Expected 0 tracked segments after reset, got %d", s.ActiveSegments())
	}
	if !almostEqual(s.Clock(), 0.05) {
		t.Errorf("Clock at %f after reset, want current time 0.05", s.Clock())
	}

	// The next utterance starts at the reset clock, not at a stale future
	// time from the old one.
	s.Enqueue(frameOf(100))
	segs := out.segmentList()
	if !almostEqual(segs[3].start, 0.05) {
		t.Errorf("Post-reset segment starts at %f, want 0.05", segs[3].start)
	}
}

func TestScheduler_FinishedSegmentLeavesTracking(t *testing.T) {
	out := newFakeOutput()
	out.running = true
	s := NewScheduler(out, testRate, nil)

	s.Enqueue(frameOf(100))
	s.Enqueue(frameOf(100))
	if s.ActiveSegments() != 2 {
		t.Fatalf("Expected 2 tracked segments, got %d", s.ActiveSegments())
	}

	out.segmentList()[0].finish()
	if s.ActiveSegments() != 1 {
		t.Errorf("Expected 1 tracked segment after natural finish, got %d", s.ActiveSegments())
	}
}

func TestScheduler_MeterObservesFrames(t *testing.T) {
	out := newFakeOutput()
	out.running = true
	meter := audio.NewLevelMeter()
	s := NewScheduler(out, testRate, meter)

	frame := make([]float32, 240)
	for i := range frame {
		frame[i] = 0.5
	}
	s.Enqueue(frame)

	if math.Abs(meter.Level()-0.5) > 1e-6 {
		t.Errorf("Meter level %f, want 0.5", meter.Level())
	}
}
