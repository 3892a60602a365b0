package playback

import (
	"context"
	"sync"
)

// fakeBuffer is a test stand-in for a device-native buffer
type fakeBuffer struct {
	samples []float32
	rate    int
}

func (b *fakeBuffer) Duration() float64 {
	return float64(len(b.samples)) / float64(b.rate)
}

// fakeSegment records one scheduled playback
type fakeSegment struct {
	out     *fakeOutput
	buf     *fakeBuffer
	start   float64
	stopped bool
	onEnded func()
}

func (s *fakeSegment) Stop() {
	s.out.mu.Lock()
	s.stopped = true
	s.out.mu.Unlock()
}

// finish simulates the segment playing out naturally
func (s *fakeSegment) finish() {
	if s.onEnded != nil {
		s.onEnded()
	}
}

// fakeOutput is a manual-clock Output implementation for tests
type fakeOutput struct {
	mu        sync.Mutex
	now       float64
	running   bool
	resumeErr error
	segments  []*fakeSegment
}

func newFakeOutput() *fakeOutput {
	return &fakeOutput{}
}

func (o *fakeOutput) CreateBuffer(samples []float32, sampleRate int) Buffer {
	return &fakeBuffer{samples: samples, rate: sampleRate}
}

func (o *fakeOutput) Play(buf Buffer, when float64, onEnded func()) Playing {
	seg := &fakeSegment{out: o, buf: buf.(*fakeBuffer), start: when, onEnded: onEnded}
	o.mu.Lock()
	o.segments = append(o.segments, seg)
	o.mu.Unlock()
	return seg
}

func (o *fakeOutput) CurrentTime() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now
}

func (o *fakeOutput) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *fakeOutput) Resume(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.resumeErr != nil {
		return o.resumeErr
	}
	o.running = true
	return nil
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
	return nil
}

// advance moves the output clock forward
func (o *fakeOutput) advance(seconds float64) {
	o.mu.Lock()
	o.now += seconds
	o.mu.Unlock()
}

// suspend simulates platform-level suspension of the device
func (o *fakeOutput) suspend() {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
}

func (o *fakeOutput) segmentList() []*fakeSegment {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*fakeSegment, len(o.segments))
	copy(out, o.segments)
	return out
}

// runningFactory returns a factory producing an already-resumable output
func runningFactory(out *fakeOutput) OutputFactory {
	return func() (Output, error) {
		return out, nil
	}
}
