package playback

import "context"

// Output is the narrow surface the scheduling core needs from a platform
// audio device. Real implementations wrap a native streaming audio output;
// tests use a fake with a manual clock.
//
// CurrentTime and Play share one monotonic clock measured in seconds.
// Implementations must invoke the onEnded callback passed to Play
// asynchronously, never from inside the Play call itself.
type Output interface {
	// CreateBuffer wraps a frame of normalized samples in a device-native
	// buffer.
	CreateBuffer(samples []float32, sampleRate int) Buffer

	// Play schedules buf to start at the given output-clock time and
	// returns a handle that can stop it early. onEnded may be nil.
	Play(buf Buffer, when float64, onEnded func()) Playing

	// CurrentTime returns the output clock in seconds.
	CurrentTime() float64

	// Running reports whether the device is producing audio. A device may
	// be suspended by platform policy until a user gesture resumes it.
	Running() bool

	// Resume asks the platform to start or resume the device. It fails
	// when the platform denies audio, e.g. without a qualifying gesture.
	Resume(ctx context.Context) error

	// Close releases the device.
	Close() error
}

// Buffer is a device-native audio buffer holding one decoded frame
type Buffer interface {
	// Duration returns the buffer's playback length in seconds.
	Duration() float64
}

// Playing is a handle to one scheduled segment
type Playing interface {
	// Stop halts the segment immediately, whether pending or audible.
	Stop()
}

// OutputFactory constructs the platform audio output. Construction may
// fail when the platform refuses audio without a user gesture; the gate
// treats that as a deferred-retry condition, not an error.
type OutputFactory func() (Output, error)
