package audio

// Decoder converts a PCM16LE byte stream arriving in arbitrarily sized
// chunks into normalized float32 sample frames. Chunk boundaries may split
// a sample in half; the decoder carries at most one trailing byte across
// calls so no sample is ever lost or duplicated.
//
// Decoder is not safe for concurrent use; each playback session owns one.
type Decoder struct {
	remainder []byte // 0 or 1 byte held from the previous chunk
}

// NewDecoder creates a decoder with an empty remainder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode prepends any held remainder byte to chunk and decodes the
// even-length prefix into normalized samples in [-1, 1). If the combined
// length is odd, the last byte is held back for the next call. A chunk
// consumed entirely as remainder yields an empty frame.
func (d *Decoder) Decode(chunk []byte) []float32 {
	data := chunk
	if len(d.remainder) > 0 {
		data = make([]byte, 0, len(d.remainder)+len(chunk))
		data = append(data, d.remainder...)
		data = append(data, chunk...)
	}

	if len(data)%2 != 0 {
		d.remainder = []byte{data[len(data)-1]}
		data = data[:len(data)-1]
	} else {
		d.remainder = nil
	}

	if len(data) < 2 {
		return nil
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		// Little-endian signed 16-bit sample
		s := int16(data[i*2]) | int16(data[i*2+1])<<8
		samples[i] = float32(s) / 32768.0
	}
	return samples
}

// HasRemainder reports whether a trailing byte is being carried
func (d *Decoder) HasRemainder() bool {
	return len(d.remainder) > 0
}

// Reset discards the held remainder byte. Called when playback is
// interrupted: a discarded stream's trailing byte is meaningless.
func (d *Decoder) Reset() {
	d.remainder = nil
}
