package audio

import "time"

// Blob is an opaque encoded audio payload as received from (or returned to)
// a caller, plus its declared content type.
type Blob struct {
	Data        []byte
	ContentType string
}

// Waveform is a mono, fixed-sample-rate sequence of float32 samples in the
// range [-1, 1].
type Waveform struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the wall-clock length of the waveform.
func (w Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(w.Samples)) * time.Second / time.Duration(w.SampleRate)
}

// Empty reports whether the waveform carries no samples.
func (w Waveform) Empty() bool {
	return len(w.Samples) == 0
}
